package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ============================================================================
// SHARED HANDLER HELPERS
// ============================================================================

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "VALIDATION_ERROR",
		"message": message,
	})
}

// intQuery reads an integer query parameter with a fallback
func intQuery(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

// floatQuery reads a float query parameter with a fallback
func floatQuery(c *gin.Context, name string, fallback float64) float64 {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

// dateQuery parses a YYYY-MM-DD query parameter. Returns the zero time when
// absent, an error when present but malformed.
func dateQuery(c *gin.Context, name string) (time.Time, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
