// Package tokens проверяет (и для тестов и утилит выпускает) JWT, которыми аутентифицируется вызывающий.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired  = errors.New("token expired")
	ErrInvalidClaims = errors.New("invalid claims")
)

// UserClaims id юзера хранится в стандартном поле sub.
type UserClaims struct {
	jwt.RegisteredClaims
}

func GenerateUserJWT(userID uuid.UUID, expire time.Duration, key []byte) (string, error) {
	now := time.Now()
	userClaims := UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	token, err := generateJWT(userClaims, key)
	if err != nil {
		return "", fmt.Errorf("generating user jwt token: %w", err)
	}
	return token, nil
}

// ValidateUserJWT проверяет подпись и срок действия токена и возвращает id юзера из sub.
func ValidateUserJWT(tokenString string, key []byte) (uuid.UUID, error) {
	token, err := validateJWT(tokenString, new(UserClaims), key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("validating user jwt token: %w", err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok {
		return uuid.Nil, ErrInvalidClaims
	}
	userID, parseErr := uuid.Parse(claims.Subject)
	if parseErr != nil {
		return uuid.Nil, fmt.Errorf("%w: subject `%s` is not uuid", ErrInvalidClaims, claims.Subject)
	}
	return userID, nil
}

func generateJWT(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("generating jwt token: %w", err)
	}

	return tokenString, nil
}

func validateJWT(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parsing jwt token: %w", err)
	}

	return token, nil
}
