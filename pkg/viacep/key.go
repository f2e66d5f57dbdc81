package viacep

import (
	"errors"
	"strings"
)

// ErrInvalidKey is returned when a raw CEP cannot be normalized to 8
// digits.
var ErrInvalidKey = errors.New("invalid cep format")

// NormalizeKey strips separator characters and surrounding whitespace
// from a raw CEP, preserving leading zeros.
func NormalizeKey(raw string) string {
	cleaned := strings.NewReplacer("-", "", ".", "").Replace(raw)
	return strings.TrimSpace(cleaned)
}

// ValidateKey normalizes a raw CEP and checks that the result is exactly
// 8 digits. It returns the normalized key or ErrInvalidKey.
func ValidateKey(raw string) (string, error) {
	key := NormalizeKey(raw)
	if len(key) != 8 {
		return "", ErrInvalidKey
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
