// Package krypto wraps the cryptographic primitives used by the rest
// of the application. Secrets handled by this package redact themselves
// when logged or formatted.
package krypto

import (
	"crypto/subtle"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidInput indicates the input could not be processed.
var ErrInvalidInput = errors.New("invalid input")

const (
	argon2Variant     = "argon2id"
	argon2MemoryKiB   = 47104
	argon2Iterations  = 1
	argon2Parallelism = 1
	argon2SaltLen     = 16
	argon2KeyLen      = 32
)

// Argon2Hash is an argon2 hash with its parameters.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes the provided bytes using the argon2id variant.
func HashArgon2(raw []byte) (Argon2Hash, error) {
	if len(raw) == 0 {
		return Argon2Hash{}, fmt.Errorf("%w: no bytes to hash", ErrInvalidInput)
	}

	salt, err := genRandomBytes(argon2SaltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	h := Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   argon2MemoryKiB,
		Iterations:  argon2Iterations,
		Parallelism: argon2Parallelism,
		Salt:        salt,
	}

	h.Hash = argon2.IDKey(raw, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, argon2KeyLen)

	return h, nil
}

// ParseArgon2Hash parses a hash in the standard
// $argon2id$v=..$m=..,t=..,p=..$salt$hash encoding.
func ParseArgon2Hash(txt string) (Argon2Hash, error) {
	var h Argon2Hash

	parts := strings.Split(txt, "$")
	if len(parts) != 6 {
		return h, fmt.Errorf("%w: hash consists of %d parts, not 6", ErrInvalidInput, len(parts))
	}

	h.Variant = parts[1]
	if h.Variant != argon2Variant {
		return h, fmt.Errorf("%w: unsupported variant %q", ErrInvalidInput, h.Variant)
	}

	_, err := fmt.Sscanf(parts[2], "v=%d", &h.Version)
	if err != nil {
		return h, fmt.Errorf("%w: failed to scan version: %v", ErrInvalidInput, err)
	}

	if h.Version != argon2.Version {
		return h, fmt.Errorf("%w: unsupported version %d", ErrInvalidInput, h.Version)
	}

	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism)
	if err != nil {
		return h, fmt.Errorf("%w: failed to scan parameters: %v", ErrInvalidInput, err)
	}

	enc := base64.RawStdEncoding.Strict()

	h.Salt, err = enc.DecodeString(parts[4])
	if err != nil {
		return h, fmt.Errorf("%w: failed to decode salt: %v", ErrInvalidInput, err)
	}

	h.Hash, err = enc.DecodeString(parts[5])
	if err != nil {
		return h, fmt.Errorf("%w: failed to decode hash: %v", ErrInvalidInput, err)
	}

	return h, nil
}

// MatchBytes reports whether the provided bytes hash to the same value
// under the parameters recorded in the hash. The comparison runs in
// constant time.
func (h Argon2Hash) MatchBytes(raw []byte) bool {
	other := argon2.IDKey(raw, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))
	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

// String encodes the hash in the standard encoding. Unlike the raw
// input, the hash itself is not confidential.
func (h Argon2Hash) String() string {
	enc := base64.RawStdEncoding.Strict()
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant, h.Version, h.MemoryKiB, h.Iterations, h.Parallelism,
		enc.EncodeToString(h.Salt), enc.EncodeToString(h.Hash))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Argon2Hash) UnmarshalText(data []byte) error {
	parsed, err := ParseArgon2Hash(string(data))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// Scan implements the sql.Scanner interface.
func (h *Argon2Hash) Scan(src any) error {
	txt, ok := src.(string)
	if !ok {
		return fmt.Errorf("%w: can only scan strings, not %T", ErrInvalidInput, src)
	}

	return h.UnmarshalText([]byte(txt))
}

// Value implements the driver.Valuer interface.
func (h Argon2Hash) Value() (driver.Value, error) {
	return h.String(), nil
}
