package auth

import "strings"

const bearerPrefix = "Bearer "

// Verifier is satisfied by TokenService.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// ResolveBearer turns an Authorization header value into a verified user id.
// Any failure reports ok=false; it never panics and has no side effects.
func ResolveBearer(v Verifier, header string) (userID int64, ok bool) {
	if v == nil || !strings.HasPrefix(header, bearerPrefix) {
		return 0, false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return 0, false
	}

	claims, err := v.Verify(token)
	if err != nil || claims == nil {
		return 0, false
	}

	return claims.UserID, true
}
