package util

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Checksum proves possession of the API secret without transmitting it:
// hex(SHA-256(api_key || request_token || api_secret)).
func Checksum(apiKey, requestToken, apiSecret string) string {
	hash := sha256.Sum256([]byte(apiKey + requestToken + apiSecret))
	return hex.EncodeToString(hash[:])
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
