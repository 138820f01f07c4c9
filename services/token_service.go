package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// TokenPair holds the generated access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenClaims is the decoded payload of a verified token.
type TokenClaims struct {
	UserID string
	Email  string
	Role   string
	Type   string
}

// TokenService creates and validates JWTs. Access and refresh tokens are
// signed with separate secrets so a leaked access secret cannot mint
// long-lived credentials.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewTokenService(accessSecret, refreshSecret string) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

// GenerateTokenPair creates a new access and refresh token pair for the user.
func (s *TokenService) GenerateTokenPair(userID, email, role string) (*TokenPair, error) {
	accessToken, err := s.generateToken(userID, email, role, TokenTypeAccess, accessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(userID, email, role, TokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ValidateToken parses a token string and checks signature, expiry and typ.
func (s *TokenService) ValidateToken(tokenStr, expectedType string) (*TokenClaims, error) {
	secret := s.accessSecret
	if expectedType == TokenTypeRefresh {
		secret = s.refreshSecret
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	typ, _ := claims["typ"].(string)
	if typ != expectedType {
		return nil, fmt.Errorf("invalid token type")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return &TokenClaims{UserID: sub, Email: email, Role: role, Type: typ}, nil
}

func (s *TokenService) generateToken(userID, email, role, tokenType string, duration time.Duration) (string, error) {
	secret := s.accessSecret
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"typ":   tokenType,
		"exp":   time.Now().Add(duration).Unix(),
		"iat":   time.Now().Unix(),
	}
	if tokenType == TokenTypeRefresh {
		secret = s.refreshSecret
		claims["jti"] = uuid.NewString()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
