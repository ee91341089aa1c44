// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

// Manager pairs the signer and verifier built from one key pair.
type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// NewManager builds a manager from an in-memory key; the public half verifies.
func NewManager(priv *rsa.PrivateKey, cfg Config) (*Manager, error) {
	if priv == nil {
		return nil, fmt.Errorf("private key is required")
	}
	return newManager(priv, &priv.PublicKey, cfg)
}

// LoadAndBuild reads both PEM files named in cfg and builds the manager.
func LoadAndBuild(cfg Config) (*Manager, error) {
	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}

	if !priv.PublicKey.Equal(pub) {
		return nil, fmt.Errorf("public key at %s does not match the private key", cfg.PubPath)
	}

	return newManager(priv, pub, cfg)
}

func newManager(priv *rsa.PrivateKey, pub *rsa.PublicKey, cfg Config) (*Manager, error) {
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("jwt issuer and audience are required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive")
	}

	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}, nil
}
