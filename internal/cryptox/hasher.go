package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// PasswordHasher hashes and verifies master passwords.
//
// Verify reports a mismatch as (false, nil); it returns an error only when the
// stored hash cannot be parsed.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, encoded string) (bool, error)
}

// maxMemoryKiB caps the memory parameter accepted from a stored hash, so a
// damaged config row cannot make Verify allocate unbounded memory.
const maxMemoryKiB = 4 * 1024 * 1024

// Argon2Hasher is a PasswordHasher producing argon2id hashes in the PHC
// string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
//
// Salt and hash are unpadded standard base64. Verification reads the cost
// parameters from the encoded string, so changing them does not invalidate
// existing hashes.
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// NewArgon2Hasher returns a hasher with the project's default cost parameters.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// Hash derives an argon2id hash of password with a fresh random salt.
func (h *Argon2Hasher) Hash(password []byte) (string, error) {
	salt := common.GenerateRandByteArray(h.SaltLen)
	key := argon2.IDKey(password, salt, h.Time, h.Memory, h.Threads, h.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify recomputes the hash of password with the parameters and salt stored
// in encoded and compares the results in constant time.
func (h *Argon2Hasher) Verify(password []byte, encoded string) (bool, error) {
	p, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey(password, p.salt, p.time, p.memory, p.threads, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(candidate, p.hash) == 1, nil
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

func parseArgon2(encoded string) (*argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, corrupt("unexpected number of fields")
	}
	if parts[1] != "argon2id" {
		return nil, corrupt("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, corrupt("bad version field: %v", err)
	}
	if version != argon2.Version {
		return nil, corrupt("unsupported argon2 version %d", version)
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, corrupt("bad parameter field: %v", err)
	}
	if p.time == 0 || p.threads == 0 || p.memory == 0 || p.memory > maxMemoryKiB {
		return nil, corrupt("parameters out of range")
	}

	var err error
	b64 := base64.RawStdEncoding
	if p.salt, err = b64.DecodeString(parts[4]); err != nil {
		return nil, corrupt("bad salt: %v", err)
	}
	if p.hash, err = b64.DecodeString(parts[5]); err != nil {
		return nil, corrupt("bad hash: %v", err)
	}
	if len(p.salt) == 0 || len(p.hash) == 0 {
		return nil, corrupt("empty salt or hash")
	}
	return p, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: invalid password hash format: %s", common.ErrCorruptConfiguration, fmt.Sprintf(format, args...))
}
