package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

// ClientCredential is a registered API client with a bcrypt-hashed secret.
type ClientCredential struct {
	ID         string
	SecretHash string
	Role       models.ClientRole
}

// AuthConfig defines configuration for client token issuance.
type AuthConfig struct {
	Secret  string
	Issuer  string
	Expiry  time.Duration
	Clients []ClientCredential
}

// AuthService exchanges client credentials for signed access tokens.
type AuthService struct {
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	clients   map[string]ClientCredential
}

// NewAuthService constructs an AuthService instance. Clients without a secret hash are ignored.
func NewAuthService(validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = time.Hour
	}
	clients := make(map[string]ClientCredential, len(config.Clients))
	for _, client := range config.Clients {
		if client.ID == "" || client.SecretHash == "" {
			continue
		}
		clients[client.ID] = client
	}
	return &AuthService{validator: validate, logger: logger, config: config, clients: clients}
}

// IssueToken authenticates a client and returns a bearer token.
func (s *AuthService) IssueToken(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid token payload")
	}

	client, ok := s.clients[req.ClientID]
	if !ok {
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(req.ClientSecret)); err != nil {
		s.logger.Warn("client authentication failed", zap.String("client_id", req.ClientID))
		return nil, appErrors.ErrInvalidCredentials
	}

	token, err := s.generateAccessToken(client)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("client token issued", zap.String("client_id", client.ID), zap.String("role", string(client.Role)))
	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.Expiry.Seconds()),
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.ClientClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.ClientClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(client ClientCredential) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.ClientClaims{
		ClientID: client.ID,
		Role:     client.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   client.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
}
