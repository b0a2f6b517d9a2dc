package modules

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Jwt backs the `jwt` module: decode-only, no signature verification (spec
// §4.5), via golang-jwt/jwt/v5's ParseUnverified — already a teacher
// transitive dependency.
type Jwt struct{}

func parseClaims(token string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, nil, fmt.Errorf("jwt: %w", err)
	}
	return parsed, claims, nil
}

func (Jwt) Decode(token string) (map[string]any, error) {
	parsed, claims, err := parseClaims(token)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"header":  parsed.Header,
		"payload": map[string]any(claims),
	}, nil
}

func (Jwt) Header(token string) (map[string]any, error) {
	parsed, _, err := parseClaims(token)
	if err != nil {
		return nil, err
	}
	return parsed.Header, nil
}

func (Jwt) Payload(token string) (map[string]any, error) {
	_, claims, err := parseClaims(token)
	if err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}

func (Jwt) IsExpired(token string) bool {
	_, claims, err := parseClaims(token)
	if err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().After(exp.Time)
}

func (Jwt) ExpiresAt(token string) (int64, error) {
	_, claims, err := parseClaims(token)
	if err != nil {
		return 0, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, fmt.Errorf("jwt: no exp claim")
	}
	return exp.Unix(), nil
}

func (Jwt) Subject(token string) (string, error) {
	_, claims, err := parseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.GetSubject()
}

func (Jwt) Issuer(token string) (string, error) {
	_, claims, err := parseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.GetIssuer()
}

func (Jwt) Audience(token string) ([]string, error) {
	_, claims, err := parseClaims(token)
	if err != nil {
		return nil, err
	}
	return claims.GetAudience()
}

func (j Jwt) Object() map[string]any {
	return map[string]any{
		"decode":      j.Decode,
		"header":      j.Header,
		"payload":     j.Payload,
		"is_expired":  j.IsExpired,
		"expires_at":  j.ExpiresAt,
		"subject":     j.Subject,
		"issuer":      j.Issuer,
		"audience":    j.Audience,
	}
}
