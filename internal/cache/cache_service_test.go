package cache

import (
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

// ============================================================================
// TEST: Miss detection
// ============================================================================

func TestIsMiss(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		miss bool
	}{
		{"redis nil is a miss", redis.Nil, true},
		{"nil error is not a miss", nil, false},
		{"connection failure is not a miss", errors.New("connection refused"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMiss(tc.err); got != tc.miss {
				t.Errorf("IsMiss(%v): expected %v, got %v", tc.err, tc.miss, got)
			}
		})
	}
}

// ============================================================================
// TEST: Key builders
// ============================================================================

func TestCacheKeys(t *testing.T) {
	if key := PartnerEarningsKey("p1", "2025-01", "2025-06"); key != "partner:p1:earnings:2025-01:2025-06" {
		t.Errorf("Unexpected earnings key %q", key)
	}
	if key := EquipmentROIKey("e1", "2025-01-01:2025-06-30:500.00"); key != "equipment:e1:roi:2025-01-01:2025-06-30:500.00" {
		t.Errorf("Unexpected ROI key %q", key)
	}
	if key := CompanyEquipmentCostKey("c1", "2025-01-01", "2025-06-30"); key != "company:c1:equipcost:2025-01-01:2025-06-30" {
		t.Errorf("Unexpected equipment cost key %q", key)
	}
}
