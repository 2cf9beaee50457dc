package state

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKeyPair(t *testing.T, dir string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.pem"), privPEM, 0644))

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.pem"), pubPEM, 0644))
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(original) })
	require.NoError(t, os.Chdir(dir))
}

func TestInitSecret_Success(t *testing.T) {
	tempDir := t.TempDir()
	writeTestKeyPair(t, tempDir)
	chdir(t, tempDir)

	jwtSecret, err := InitSecret()

	require.NoError(t, err, "InitSecret should not return an error")
	require.NotNil(t, jwtSecret)
	require.NotNil(t, jwtSecret.Private, "Private key should not be nil")
	require.NotNil(t, jwtSecret.Public, "Public key should not be nil")
	assert.Equal(t, 2048, jwtSecret.Private.N.BitLen())
}

func TestInitSecret_MissingPrivateKey(t *testing.T) {
	tempDir := t.TempDir()
	chdir(t, tempDir)

	jwtSecret, err := InitSecret()

	assert.Error(t, err, "InitSecret should return error when private key is missing")
	assert.Nil(t, jwtSecret)
}

func TestInitSecret_InvalidPrivateKey(t *testing.T) {
	tempDir := t.TempDir()
	writeTestKeyPair(t, tempDir)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "private.pem"), []byte("not a key"), 0644))
	chdir(t, tempDir)

	jwtSecret, err := InitSecret()

	assert.Error(t, err)
	assert.Nil(t, jwtSecret)
	assert.Contains(t, err.Error(), "invalid private key")
}

func TestInitSecret_InvalidPublicKey(t *testing.T) {
	tempDir := t.TempDir()
	writeTestKeyPair(t, tempDir)
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "public.pem"), []byte("not a key"), 0644))
	chdir(t, tempDir)

	jwtSecret, err := InitSecret()

	assert.Error(t, err)
	assert.Nil(t, jwtSecret)
	assert.Contains(t, err.Error(), "invalid public key")
}
