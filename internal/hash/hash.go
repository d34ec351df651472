// Package hash derives and verifies password digests with Argon2id.
// A server-side pepper is appended to every password before hashing, so a
// leaked database alone is not enough for an offline attack.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Version = argon2.Version

var ErrInvalidDigest = errors.New("hash: malformed or unsupported digest")

// Params controls Argon2id cost. MemoryKiB is in KiB as required by
// argon2.IDKey.
type Params struct {
	TimeCost    uint32
	MemoryKiB   uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultParams targets interactive login latency.
func DefaultParams() Params {
	return Params{
		TimeCost:    3,
		MemoryKiB:   64 * 1024,
		Parallelism: 2,
		SaltLen:     16,
		KeyLen:      32,
	}
}

type Hasher struct {
	params Params
	pepper string
}

func New(params Params, pepper string) *Hasher {
	return &Hasher{params: params, pepper: pepper}
}

// Hash returns the digest in PHC string format:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash: salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		h.params.TimeCost,
		h.params.MemoryKiB,
		h.params.Parallelism,
		h.params.KeyLen,
	)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		h.params.MemoryKiB,
		h.params.TimeCost,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify recomputes the digest with the parameters embedded in encoded and
// compares in constant time. Malformed digests verify as false.
func (h *Hasher) Verify(password, encoded string) bool {
	params, salt, expected, err := decode(encoded)
	if err != nil {
		return false
	}
	// Bound attacker-controlled digest strings so a hostile hash cannot
	// force pathological memory or CPU use.
	if !withinBounds(params, h.params) {
		return false
	}

	key := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		params.TimeCost,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(expected)),
	)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// NeedsRehash reports whether encoded was produced with cost parameters
// different from the currently configured ones. Callers re-hash on the next
// successful login so cost upgrades roll out without a migration job.
func (h *Hasher) NeedsRehash(encoded string) bool {
	params, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return params.TimeCost != h.params.TimeCost ||
		params.MemoryKiB != h.params.MemoryKiB ||
		params.Parallelism != h.params.Parallelism ||
		params.SaltLen != h.params.SaltLen ||
		params.KeyLen != h.params.KeyLen
}

func withinBounds(got, limits Params) bool {
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.TimeCost > limits.TimeCost*2 {
		return false
	}
	if got.Parallelism > limits.Parallelism*2 {
		return false
	}
	if got.SaltLen < 8 || got.SaltLen > 64 {
		return false
	}
	if got.KeyLen < 16 || got.KeyLen > 128 {
		return false
	}
	return true
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidDigest
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Params{}, nil, nil, ErrInvalidDigest
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Params{}, nil, nil, ErrInvalidDigest
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Params{}, nil, nil, ErrInvalidDigest
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidDigest
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidDigest
	}

	params := Params{
		TimeCost:    iter,
		MemoryKiB:   mem,
		Parallelism: uint8(par),
		SaltLen:     uint32(len(salt)),
		KeyLen:      uint32(len(key)),
	}
	return params, salt, key, nil
}
