package auth

// UserClaims represents the JWT claims for a platform user. Tokens are
// issued by the identity service; this service only validates and reads
// them.
type UserClaims struct {
	UserID     string   `json:"user_id"`
	Email      string   `json:"email"`
	CompanyIDs []string `json:"company_ids"`
	IsAdmin    bool     `json:"is_admin"`
}

// HasCompany reports whether the claims grant access to a company
func (c *UserClaims) HasCompany(companyID string) bool {
	if c.IsAdmin {
		return true
	}
	for _, id := range c.CompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

// AuthError is a structured authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

var (
	ErrInvalidToken = AuthError{Code: "INVALID_TOKEN", Message: "invalid or malformed token"}
	ErrTokenExpired = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized = AuthError{Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrForbidden    = AuthError{Code: "FORBIDDEN", Message: "insufficient permissions"}
)
