package jwtx

import "github.com/golang-jwt/jwt/v5"

// HS256Verifier validates JWTs signed with a shared secret.
type HS256Verifier struct {
	secret []byte
	issuer string
}

func NewVerifierHS256(secret []byte, issuer string) *HS256Verifier {
	return &HS256Verifier{secret: secret, issuer: issuer}
}

func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, parseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := validate(&claims, v.issuer); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
