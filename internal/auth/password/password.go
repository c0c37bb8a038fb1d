// Package password hashes and verifies agent passwords with Argon2id.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

// Hasher is the password primitive the agent and auth services depend on.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultParams matches the OWASP baseline for Argon2id.
var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4}

type argon2Hasher struct {
	params Params
}

// NewArgon2Hasher returns a Hasher using p, falling back to DefaultParams for zero fields.
func NewArgon2Hasher(p Params) Hasher {
	if p.Time == 0 {
		p.Time = DefaultParams.Time
	}
	if p.Memory == 0 {
		p.Memory = DefaultParams.Memory
	}
	if p.Threads == 0 {
		p.Threads = DefaultParams.Threads
	}
	return &argon2Hasher{params: p}
}

// ProvideHasher is the fx constructor.
func ProvideHasher() Hasher {
	return NewArgon2Hasher(DefaultParams)
}

func (h *argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	p := h.params
	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, argonKeyLen)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", p.Memory, p.Time, p.Threads, saltB64, hashB64), nil
}

// Verify checks password against an encoded hash. Parameters are read from
// the hash so older hashes keep verifying after a cost change.
func (h *argon2Hasher) Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	p, ok := parseParams(parts[3])
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return false
	}

	check := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}

func parseParams(raw string) (Params, bool) {
	fields := strings.Split(raw, ",")
	if len(fields) != 3 {
		return Params{}, false
	}

	m, ok := strings.CutPrefix(fields[0], "m=")
	if !ok {
		return Params{}, false
	}
	t, ok := strings.CutPrefix(fields[1], "t=")
	if !ok {
		return Params{}, false
	}
	th, ok := strings.CutPrefix(fields[2], "p=")
	if !ok {
		return Params{}, false
	}

	m64, err := strconv.ParseUint(m, 10, 32)
	if err != nil {
		return Params{}, false
	}
	t64, err := strconv.ParseUint(t, 10, 32)
	if err != nil {
		return Params{}, false
	}
	p64, err := strconv.ParseUint(th, 10, 8)
	if err != nil {
		return Params{}, false
	}

	return Params{Time: uint32(t64), Memory: uint32(m64), Threads: uint8(p64)}, true
}
