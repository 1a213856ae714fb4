package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/vitos/market_snapshot/internal/domain"
)

// FormatVersion is written into every snapshot envelope. Decode rejects
// other versions rather than guessing at their layout.
const FormatVersion = 1

const checksumPrefix = "sha256:"

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// envelope is the on-disk form shared by every backend.
type envelope struct {
	FormatVersion int             `json:"format_version"`
	Key           string          `json:"key"`
	SavedAt       time.Time       `json:"saved_at"`
	Checksum      string          `json:"checksum"`
	Payload       json.RawMessage `json:"payload"`
}

// ValidateKey accepts keys that are safe to use as a file name or object suffix.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return &domain.InvalidKeyError{Key: key}
	}
	return nil
}

// Encode wraps value in a versioned, checksummed envelope.
func Encode(key string, value any, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, &domain.IOError{Key: key, Op: "encode", Err: err}
	}
	data, err := json.Marshal(envelope{
		FormatVersion: FormatVersion,
		Key:           key,
		SavedAt:       now.UTC(),
		Checksum:      checksum(payload),
		Payload:       payload,
	})
	if err != nil {
		return nil, &domain.IOError{Key: key, Op: "encode", Err: err}
	}
	return data, nil
}

// Decode verifies the envelope and unmarshals its payload into dst.
func Decode(key string, data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return &domain.CorruptDataError{Key: key, Reason: "decode envelope", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &domain.CorruptDataError{Key: key, Reason: "trailing data after envelope"}
	}
	if env.FormatVersion != FormatVersion {
		return &domain.CorruptDataError{Key: key, Reason: fmt.Sprintf("unsupported format version %d", env.FormatVersion)}
	}
	if len(env.Payload) == 0 {
		return &domain.CorruptDataError{Key: key, Reason: "missing payload"}
	}
	if got := checksum(env.Payload); got != env.Checksum {
		return &domain.CorruptDataError{Key: key, Reason: fmt.Sprintf("checksum mismatch: stored %s, computed %s", env.Checksum, got)}
	}

	payload := json.NewDecoder(bytes.NewReader(env.Payload))
	payload.UseNumber()
	if err := payload.Decode(dst); err != nil {
		return &domain.CorruptDataError{Key: key, Reason: "decode payload", Err: err}
	}
	return nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return checksumPrefix + hex.EncodeToString(sum[:])
}
