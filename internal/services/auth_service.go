package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// AuthService issues and verifies stateless HS256 tokens. The secret is
// fixed at construction; there is no revocation list.
type AuthService struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string, tokenTTL time.Duration, logger zerolog.Logger) (*AuthService, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: token signing secret is not set", ErrConfig)
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}

	return &AuthService{
		secretKey: []byte(secret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
		logger:    logger,
	}, nil
}

func (s *AuthService) GenerateToken(userID int, role string) (string, error) {
	now := s.now()

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error generating token")
		return "", err
	}

	return tokenString, nil
}

// ValidateToken returns the claims of a valid token, or an error wrapping
// ErrTokenMalformed, ErrTokenExpired or ErrTokenInvalidSignature. A token
// whose exp is in the past is reported as expired even if its signature is
// also wrong.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	})
	if err == nil && token.Valid {
		if claims.UserID <= 0 || claims.Role == "" {
			return nil, fmt.Errorf("%w: missing user_id or role claim", ErrTokenMalformed)
		}
		return claims, nil
	}
	if err == nil {
		err = errors.New("token not valid")
	}

	switch {
	case s.expiredUnverified(tokenString), errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalidSignature, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func (s *AuthService) expiredUnverified(tokenString string) bool {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time)
}
