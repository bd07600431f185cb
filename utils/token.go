package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenMetadata struct to describe metadata in JWT.
type TokenMetadata struct {
	Id  string
	Otp bool
	Exp int64
}

// GenerateToken signs an HS512 access token. Tokens are issued by the account
// service; this is used by tooling and tests.
func GenerateToken(id string, otp bool, key string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}

	claims["id"] = id
	claims["otp"] = otp
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	t, err := token.SignedString([]byte(key))
	if err != nil {
		return "", err
	}
	return t, nil
}

func CheckAndExtractTokenMetadata(token string, key string) (*TokenMetadata, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return MetadataFromClaims(claims)
}

// MetadataFromClaims reads the id, otp and exp claims.
func MetadataFromClaims(claims jwt.MapClaims) (*TokenMetadata, error) {
	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}
	otp, _ := claims["otp"].(bool)
	exp, _ := claims["exp"].(float64)
	return &TokenMetadata{
		Id:  id,
		Otp: otp,
		Exp: int64(exp),
	}, nil
}
