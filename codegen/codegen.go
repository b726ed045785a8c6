// Package codegen produces short codes for links and validates
// user-chosen aliases. Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultCodeLength is the length of generated short codes. At 62^7
	// possible values, random collisions stay negligible at the scale
	// this service targets.
	DefaultCodeLength = 7

	// MinAliasLength and MaxAliasLength bound user-chosen aliases.
	MinAliasLength = 4
	MaxAliasLength = 30
)

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator implements Generator using base62 encoding.
// It is safe for concurrent use.
type base62Generator struct{}

// NewBase62 returns a new base62 short-code generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate generates a random base62 string of the specified length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = base62Chars[int(b[i])%len(base62Chars)]
	}

	return string(b), nil
}

// ValidateAlias checks a user-chosen alias against the allowed format:
// 4-30 characters drawn from [A-Za-z0-9_-], not starting or ending
// with a dash or underscore.
func ValidateAlias(alias string) error {
	if alias == "" {
		return errors.New("alias cannot be empty")
	}
	if len(alias) < MinAliasLength {
		return fmt.Errorf("alias too short (minimum %d characters)", MinAliasLength)
	}
	if len(alias) > MaxAliasLength {
		return fmt.Errorf("alias too long (maximum %d characters)", MaxAliasLength)
	}

	if strings.HasPrefix(alias, "-") || strings.HasPrefix(alias, "_") ||
		strings.HasSuffix(alias, "-") || strings.HasSuffix(alias, "_") {
		return errors.New("alias cannot start or end with dash or underscore")
	}

	for _, char := range alias {
		if !isValidAliasChar(char) {
			return errors.New("alias contains invalid characters (only alphanumeric, dash, and underscore allowed)")
		}
	}
	return nil
}

func isValidAliasChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
