package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ChecksumPrefix is the prefix for SHA-256 checksums.
const ChecksumPrefix = "sha256:"

// Checksum is a hex-encoded SHA-256 hash with the "sha256:" prefix.
type Checksum string

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidChecksum  = errors.New("invalid checksum format")
)

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return FormatChecksum(sum[:])
}

// VerifyChecksum checks data against an expected checksum. A malformed
// expected value is reported as ErrInvalidChecksum.
func VerifyChecksum(data []byte, expected Checksum) error {
	if _, err := ParseChecksum(expected); err != nil {
		return err
	}
	if actual := ComputeChecksum(data); actual != expected {
		return fmt.Errorf("%w: expected %s got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}

// FormatChecksum formats raw hash bytes into a Checksum with the "sha256:" prefix.
func FormatChecksum(sum []byte) Checksum {
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum))
}

// ParseChecksum strips the "sha256:" prefix and returns the raw hex string.
func ParseChecksum(c Checksum) (string, error) {
	s := string(c)
	if !strings.HasPrefix(s, ChecksumPrefix) {
		return "", fmt.Errorf("%w: missing prefix %q", ErrInvalidChecksum, ChecksumPrefix)
	}
	hexStr := s[len(ChecksumPrefix):]
	if len(hexStr) != 64 {
		return "", fmt.Errorf("%w: expected 64 hex chars, got %d", ErrInvalidChecksum, len(hexStr))
	}
	if _, err := hex.DecodeString(hexStr); err != nil {
		return "", fmt.Errorf("%w: invalid hex: %v", ErrInvalidChecksum, err)
	}
	return hexStr, nil
}
