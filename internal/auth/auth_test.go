package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T, pkcs8 bool) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var block *pem.Block
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	} else {
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path, key
}

func TestLoadPrivateKey_PKCS8(t *testing.T) {
	path, want := writeTestKey(t, true)

	got, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestLoadPrivateKey_PKCS1(t *testing.T) {
	path, want := writeTestKey(t, false)

	got, err := LoadPrivateKey(path)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestLoadPrivateKey_NotPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := LoadPrivateKey(path)
	assert.Error(t, err)
}

func TestLoadCredentials_Validation(t *testing.T) {
	_, err := LoadCredentials("", "/tmp/key.pem")
	assert.Error(t, err)

	_, err = LoadCredentials("key-id", "")
	assert.Error(t, err)
}

func TestSignRequest_HeadersVerify(t *testing.T) {
	path, key := writeTestKey(t, true)

	creds, err := LoadCredentials("key-123", path)
	require.NoError(t, err)

	headers, err := creds.SignRequest("GET", "/stream/v1")
	require.NoError(t, err)

	assert.Equal(t, "key-123", headers[HeaderKey])
	require.NotEmpty(t, headers[HeaderTimestamp])
	require.NotEmpty(t, headers[HeaderSignature])

	sig, err := base64.StdEncoding.DecodeString(headers[HeaderSignature])
	require.NoError(t, err)

	message := fmt.Sprintf("%sGET/stream/v1", headers[HeaderTimestamp])
	hashed := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hashed[:], sig,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	assert.NoError(t, err)
}
