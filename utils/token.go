package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JwtCustomClaim identifies the caller of the agribenchmark API. Subject is
// the user or service name.
type JwtCustomClaim struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

const defaultTokenHourLifespan = 24

var ErrMissingApiSecret = errors.New("API_SECRET is not set")

// ApiSecret returns the HMAC key tokens are signed with. There is no default.
func ApiSecret() ([]byte, error) {
	secret := strings.TrimSpace(os.Getenv("API_SECRET"))
	if secret == "" {
		return nil, ErrMissingApiSecret
	}
	return []byte(secret), nil
}

func tokenLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = defaultTokenHourLifespan
	}
	return time.Duration(hours) * time.Hour
}

func JwtGenerate(subject string, role string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: now.Add(tokenLifespan()).Unix(),
			IssuedAt:  now.Unix(),
		},
	})

	secret, err := ApiSecret()
	if err != nil {
		return "", err
	}
	token, err := t.SignedString(secret)
	if err != nil {
		return "", err
	}

	return token, nil
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return ApiSecret()
	})
}
