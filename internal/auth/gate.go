package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/trialiq-server/internal/domain"
)

const defaultTokenTTL = 8 * time.Hour

// Gate checks the admin password and issues and verifies admin tokens.
type Gate struct {
	hash   []byte
	secret string
	ttl    time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

// NewGate builds a gate from the admin configuration. A configured bcrypt
// hash takes precedence over the plain password, which is hashed once here.
func NewGate(cfg domain.AdminConfig, logger *logrus.Logger) (*Gate, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("admin token secret is required")
	}

	var hash []byte
	switch {
	case cfg.PasswordHash != "":
		hash = []byte(cfg.PasswordHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
	case cfg.Password != "":
		var err error
		hash, err = HashPassword(cfg.Password)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("admin password or password hash is required")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Gate{hash: hash, secret: cfg.TokenSecret, ttl: ttl, log: logger, now: time.Now}, nil
}

// HashPassword returns a bcrypt hash of password at the default cost.
func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	return hash, nil
}

// Login exchanges the admin password for a signed token.
func (g *Gate) Login(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		g.log.Warn("Admin login rejected")
		return "", time.Time{}, domain.ErrUnauthorized
	}

	now := g.now()
	token, err := GenerateToken(g.secret, RoleAdmin, now, g.ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing admin token: %w", err)
	}
	g.log.Info("Admin login accepted")
	return token, now.Add(g.ttl), nil
}

// Authorize verifies an admin token.
func (g *Gate) Authorize(token string) (*Claims, error) {
	claims, err := ValidateToken(g.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, errWrongRole)
	}
	return claims, nil
}
