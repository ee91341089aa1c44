package jwt

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePEM(t *testing.T, dir, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0o600))
	return path
}

func TestLoadAndBuildFromPKCS8AndPKIX(t *testing.T) {
	priv := newKeyPair(t)
	dir := t.TempDir()

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	m, err := LoadAndBuild(Config{
		PrivPath: writePEM(t, dir, "priv.pem", "PRIVATE KEY", privDER),
		PubPath:  writePEM(t, dir, "pub.pem", "PUBLIC KEY", pubDER),
		Issuer:   "mattepass",
		Audience: "mattepass-users",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	token, _, err := m.Generator.GenerateAccessToken(1, "root", "admin")
	require.NoError(t, err)
	claims, err := m.Verifier.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestParsePKCS1Keys(t *testing.T) {
	priv := newKeyPair(t)

	parsedPriv, err := ParseRSAPrivateKeyPEM(pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}))
	require.NoError(t, err)
	assert.True(t, priv.Equal(parsedPriv))

	parsedPub, err := ParseRSAPublicKeyPEM(pem.EncodeToMemory(&pem.Block{
		Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey),
	}))
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(parsedPub))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseRSAPrivateKeyPEM([]byte("not pem"))
	assert.Error(t, err)
	_, err = ParseRSAPublicKeyPEM([]byte("not pem"))
	assert.Error(t, err)

	_, err = ParseRSAPrivateKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
	assert.Error(t, err)

	_, err = LoadAndBuild(Config{PrivPath: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)
}

func TestLoadAndBuildRejectsMismatchedPair(t *testing.T) {
	dir := t.TempDir()
	privDER, err := x509.MarshalPKCS8PrivateKey(newKeyPair(t))
	require.NoError(t, err)
	other := newKeyPair(t)
	pubDER, err := x509.MarshalPKIXPublicKey(&other.PublicKey)
	require.NoError(t, err)

	_, err = LoadAndBuild(Config{
		PrivPath: writePEM(t, dir, "priv.pem", "PRIVATE KEY", privDER),
		PubPath:  writePEM(t, dir, "pub.pem", "PUBLIC KEY", pubDER),
		Issuer:   "mattepass",
		Audience: "mattepass-users",
		TTL:      time.Hour,
	})
	assert.Error(t, err)
}

func TestNewManagerValidatesConfig(t *testing.T) {
	priv := newKeyPair(t)

	_, err := NewManager(priv, Config{Issuer: "mattepass", Audience: "mattepass-users"})
	assert.Error(t, err, "zero ttl")

	_, err = NewManager(nil, Config{Issuer: "mattepass", Audience: "mattepass-users", TTL: time.Hour})
	assert.Error(t, err)

	m, err := NewManager(priv, Config{Issuer: "mattepass", Audience: "mattepass-users", TTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, m.Generator.Ttl)
}
