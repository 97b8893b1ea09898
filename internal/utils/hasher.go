package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash generates a SHA-256 hash of the input string
func Hash(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// KeywordHash hashes the case- and whitespace-normalised form of a keyword
// so that "Go  Generics" and "go generics" collide.
func KeywordHash(text string) string {
	return Hash(NormalizeKeyword(text))
}

// NormalizeKeyword lowercases text and collapses whitespace
func NormalizeKeyword(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
