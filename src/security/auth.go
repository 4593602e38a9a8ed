package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService signs in the shop's operators. Accounts come from
// configuration as email → bcrypt hash pairs; there is no sign-up.
type AuthService struct {
	JWTSecret   string
	tokenExpiry time.Duration
	operators   map[string]string
}

func NewAuthService(secret string, tokenExpiry time.Duration, operators map[string]string) *AuthService {
	normalized := make(map[string]string, len(operators))
	for email, hash := range operators {
		normalized[strings.ToLower(strings.TrimSpace(email))] = hash
	}
	if tokenExpiry <= 0 {
		tokenExpiry = time.Hour
	}
	return &AuthService{
		JWTSecret:   secret,
		tokenExpiry: tokenExpiry,
		operators:   normalized,
	}
}

func (a *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *AuthService) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// Authenticate checks an operator's password and returns the normalized email.
func (a *AuthService) Authenticate(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, ok := a.operators[email]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := a.CompareHashAndPassword(hash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return email, nil
}

func (a *AuthService) GenerateToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": email,
		"jti": uuid.NewString(),
		"exp": now.Add(a.tokenExpiry).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok {
			return "", errors.New("invalid token: 'sub' claim missing or not a string")
		}
		if _, known := a.operators[sub]; !known {
			return "", errors.New("invalid token: unknown operator")
		}
		return sub, nil
	}

	return "", errors.New("invalid token")
}
