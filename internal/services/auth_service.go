// internal/services/auth_service.go
package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/utils"
)

const OperatorRole = "operator"

var ErrInvalidCredentials = errors.New("invalid username or password")

// AuthService logs in the single operator account configured for the
// dashboard and the simulator.
type AuthService struct {
	username     string
	passwordHash string
	tokenTTL     time.Duration
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,max=72"`
}

type AuthResponse struct {
	Username    string    `json:"username"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"` // in seconds
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewAuthService accepts either a plain password or a bcrypt hash in
// cfg.Password; a plain password is hashed once here.
func NewAuthService(cfg config.AuthConfig) (*AuthService, error) {
	hash := cfg.Password
	if !isBcryptHash(hash) {
		var err error
		if hash, err = utils.HashPassword(cfg.Password); err != nil {
			return nil, fmt.Errorf("failed to hash operator password: %w", err)
		}
	}

	ttl := time.Duration(cfg.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	utils.SetJWTSecret(cfg.JWTSecret)

	return &AuthService{
		username:     cfg.Username,
		passwordHash: hash,
		tokenTTL:     ttl,
	}, nil
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	passwordOK := utils.CheckPassword(s.passwordHash, req.Password)
	if !usernameOK || !passwordOK {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := utils.GenerateJWT(s.username, OperatorRole, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		Username:    s.username,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
