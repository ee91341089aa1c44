// internal/pkg/jwt/verifier.go
package jwt

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	pub      *rsa.PublicKey
	issuer   string
	audience string
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pub:      pub,
		issuer:   issuer,
		audience: audience,
	}
}

// Verify validates a JWT token and returns the claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, fmt.Errorf("jwt verifier has nil public key")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", v.issuer, claims.Issuer)
	}

	if !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("invalid audience")
	}

	if claims.UserID == 0 || claims.Role == "" {
		return nil, fmt.Errorf("token is missing user identity")
	}

	return claims, nil
}
