package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// ComputeSHA256 computes the SHA256 hash of a byte slice and returns it as a
// lowercase hexadecimal string. Used for fingerprinting fetched texture
// payloads so duplicate content can be reported in cache statistics.
//
// This is a pure function with deterministic output for any given input.
func ComputeSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeSHA256FromReader computes the SHA256 hash from an io.Reader.
// Useful for hashing streamed downloads without buffering them twice.
func ComputeSHA256FromReader(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader cannot be nil")
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
