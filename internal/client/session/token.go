package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims decodes the claims of a JWT bearer token without verifying
// its signature. The client never trusts these claims; they are only
// inspected for diagnostics.
func TokenClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
