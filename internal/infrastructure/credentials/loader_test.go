package credentials

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPISecret, "")
	os.Unsetenv(EnvAPIKey)
	os.Unsetenv(EnvAPISecret)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BYBIT_API_KEY=file-key\nBYBIT_API_SECRET=file-secret\n"), 0o600))

	creds, err := Load(path, Credentials{APIKey: "cfg-key", APISecret: "cfg-secret"})
	require.NoError(t, err)
	assert.Equal(t, Credentials{APIKey: "file-key", APISecret: "file-secret"}, creds)
}

func TestLoad_EnvWinsOverFallback(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvAPISecret, "")

	creds, err := Load("", Credentials{APIKey: "cfg-key", APISecret: "cfg-secret"})
	require.NoError(t, err)
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "cfg-secret", creds.APISecret)
}

func TestLoad_MissingFileUsesFallback(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPISecret, "")

	creds, err := Load(filepath.Join(t.TempDir(), "absent.env"), Credentials{APIKey: "k", APISecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "k", creds.APIKey)
}

func TestLoad_Missing(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPISecret, "")

	_, err := Load("", Credentials{APIKey: "only-key"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestPlainHeaders_Authorize(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.invalid/v5/market/kline", nil)
	require.NoError(t, err)

	auth := PlainHeaders{Credentials{APIKey: "k", APISecret: "s"}}
	require.NoError(t, auth.Authorize(req))
	assert.Equal(t, "k", req.Header.Get("api_key"))
	assert.Equal(t, "s", req.Header.Get("api_secret"))

	assert.ErrorIs(t, PlainHeaders{}.Authorize(req), ErrMissingCredentials)
}
