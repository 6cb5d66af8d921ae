package directory

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minSecretBytes        = 10
	phcAlgorithm          = "argon2id"
)

var (
	ErrWeakParams    = errors.New("directory: argon2 parameters below minimum")
	ErrShortSecret   = errors.New("directory: password must be at least 10 bytes")
	ErrMalformedHash = errors.New("directory: malformed argon2id hash")
)

// Params are the argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follow the OWASP argon2id baseline.
func DefaultParams() Params {
	return Params{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

func (p Params) validate() error {
	switch {
	case p.Memory < minMemoryKB, p.Time < 1, p.Parallelism < 1:
		return ErrWeakParams
	case p.SaltLength < minSaltLength, p.KeyLength < minKeyLength:
		return ErrWeakParams
	}
	return nil
}

// Hasher produces and checks PHC-formatted argon2id hashes:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
type Hasher struct {
	params Params
}

func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p}, nil
}

// Hash derives a fresh salted hash. Bytes are used as given, without normalization.
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) < minSecretBytes {
		return "", ErrShortSecret
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	p := h.params
	key := argon2.IDKey([]byte(secret), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters stored in encoded.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	d, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(secret), d.salt, d.params.Time, d.params.Memory, d.params.Parallelism, d.params.KeyLength)
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters than h.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	d, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	stored := d.params
	return h.params.Memory > stored.Memory ||
		h.params.Time > stored.Time ||
		h.params.Parallelism > stored.Parallelism ||
		h.params.KeyLength != stored.KeyLength, nil
}

type decoded struct {
	params Params
	salt   []byte
	key    []byte
}

func decodePHC(encoded string) (*decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != phcAlgorithm {
		return nil, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: version %q", ErrMalformedHash, parts[2])
	}

	var d decoded
	for _, kv := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, ErrMalformedHash
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("%w: parameter %q", ErrMalformedHash, kv)
		}
		switch name {
		case "m":
			d.params.Memory = uint32(v)
		case "t":
			d.params.Time = uint32(v)
		case "p":
			if v > 255 {
				return nil, fmt.Errorf("%w: parameter %q", ErrMalformedHash, kv)
			}
			d.params.Parallelism = uint8(v)
		default:
			return nil, fmt.Errorf("%w: parameter %q", ErrMalformedHash, kv)
		}
	}
	if d.params.Memory < minMemoryKB || d.params.Time == 0 || d.params.Parallelism == 0 {
		return nil, ErrMalformedHash
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	d.params.SaltLength = uint32(len(d.salt))
	d.params.KeyLength = uint32(len(d.key))
	return &d, nil
}
