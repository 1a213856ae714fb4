// Package credentials supplies the API key pair used by the exchange adapter.
//
// PlainHeaders reproduces the legacy scheme of sending the key and secret as
// unsigned request headers. It is a compatibility shim: the secret travels in
// clear text and nothing binds it to the request. Swap the Authorizer given to
// the adapter to change the scheme; the adapter's request building does not
// depend on it.
package credentials

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvAPIKey    = "BYBIT_API_KEY"
	EnvAPISecret = "BYBIT_API_SECRET"
)

var ErrMissingCredentials = errors.New("credentials: api key and secret are not set")

type Credentials struct {
	APIKey    string
	APISecret string
}

// Load reads envFile (if it exists) into the process environment, then takes
// the key pair from BYBIT_API_KEY/BYBIT_API_SECRET, falling back to fallback
// field by field.
func Load(envFile string, fallback Credentials) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("credentials: load %s: %w", envFile, err)
		}
	}

	creds := Credentials{
		APIKey:    os.Getenv(EnvAPIKey),
		APISecret: os.Getenv(EnvAPISecret),
	}
	if creds.APIKey == "" {
		creds.APIKey = fallback.APIKey
	}
	if creds.APISecret == "" {
		creds.APISecret = fallback.APISecret
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

// PlainHeaders attaches the key pair as the api_key and api_secret headers.
type PlainHeaders struct {
	Credentials
}

func (p PlainHeaders) Authorize(req *http.Request) error {
	if p.APIKey == "" || p.APISecret == "" {
		return ErrMissingCredentials
	}
	req.Header.Set("api_key", p.APIKey)
	req.Header.Set("api_secret", p.APISecret)
	return nil
}
