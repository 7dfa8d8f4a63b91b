// Package totp generates RFC 6238 time-based one-time passwords from a
// shared base32 secret. The broker's 2FA step consumes these codes.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/marketloft/sessiongate/internal/errors"
)

const (
	// StepSeconds is the RFC 6238 time-step.
	StepSeconds = 30
	digits      = 6
	modulo      = 1_000_000
)

// Generate produces the 6-digit code for the time bucket containing t.
// The secret is base32 (padding optional, case-insensitive); anything
// outside the base32 alphabet yields an INVALID_SECRET_FORMAT error.
func Generate(secret string, t time.Time) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	normalized = strings.TrimRight(normalized, "=")

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return "", apperrors.InvalidSecretFormat(err)
	}

	counter := uint64(t.Unix()) / StepSeconds

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// RFC 4226 dynamic truncation
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", digits, code%modulo), nil
}

// GenerateNow produces the code for the current time bucket.
func GenerateNow(secret string) (string, error) {
	return Generate(secret, time.Now())
}
