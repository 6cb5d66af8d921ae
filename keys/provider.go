package keys

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	gjwt "github.com/MrEthical07/goGuard/jwt"
)

var (
	// ErrKeyNotAvailable is returned when neither a key pair nor a secret is configured.
	ErrKeyNotAvailable = errors.New("signing key is not available")
	// ErrAlgorithmMissing is returned when no algorithm is configured.
	ErrAlgorithmMissing = errors.New("signing algorithm is missing")
	// ErrUnsupportedAlgorithm is returned for algorithms outside the provider's allow-list.
	ErrUnsupportedAlgorithm = errors.New("signing algorithm is not supported")
	// ErrInvalidKey is returned when key material cannot be parsed or does not match the algorithm.
	ErrInvalidKey = errors.New("invalid key material")
)

// Provider supplies the signing key, the verification key and the signing method.
type Provider interface {
	SigningKey() (any, error)
	VerificationKey() (any, error)
	Method() (jwt.SigningMethod, error)
}

// Config selects key material. PEM bytes take precedence over paths.
type Config struct {
	Algorithm string

	Secret []byte

	PrivateKey     []byte
	PublicKey      []byte
	PrivateKeyPath string
	PublicKeyPath  string
	Passphrase     []byte
}

// HasKeyPair reports whether both halves of a key pair are configured.
func (c Config) HasKeyPair() bool {
	if len(c.PrivateKey) > 0 && len(c.PublicKey) > 0 {
		return true
	}
	return strings.TrimSpace(c.PrivateKeyPath) != "" && strings.TrimSpace(c.PublicKeyPath) != ""
}

// FromConfig returns a KeyPair when one is configured, else a Secret, else ErrKeyNotAvailable.
func FromConfig(cfg Config) (Provider, error) {
	if cfg.HasKeyPair() {
		private, public := cfg.PrivateKey, cfg.PublicKey
		if len(private) == 0 || len(public) == 0 {
			var err error
			if private, err = os.ReadFile(cfg.PrivateKeyPath); err != nil {
				return nil, fmt.Errorf("%w: read private key: %v", ErrKeyNotAvailable, err)
			}
			if public, err = os.ReadFile(cfg.PublicKeyPath); err != nil {
				return nil, fmt.Errorf("%w: read public key: %v", ErrKeyNotAvailable, err)
			}
		}
		return NewKeyPair(cfg.Algorithm, private, public, cfg.Passphrase)
	}
	if len(cfg.Secret) > 0 {
		return NewSecret(cfg.Algorithm, cfg.Secret)
	}
	return nil, ErrKeyNotAvailable
}

var secretMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
	"HS224": gjwt.SigningMethodHS224,
}

// Secret is a shared HMAC key.
type Secret struct {
	key    []byte
	method jwt.SigningMethod
}

// NewSecret validates alg against the HMAC allow-list (HS256, HS384, HS512, HS224).
func NewSecret(alg string, key []byte) (*Secret, error) {
	if strings.TrimSpace(alg) == "" {
		return nil, ErrAlgorithmMissing
	}
	method, ok := secretMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: algorithm %s is not supported for secret keys", ErrUnsupportedAlgorithm, alg)
	}
	if len(key) == 0 {
		return nil, ErrKeyNotAvailable
	}
	return &Secret{key: append([]byte(nil), key...), method: method}, nil
}

func (s *Secret) SigningKey() (any, error)           { return s.key, nil }
func (s *Secret) VerificationKey() (any, error)      { return s.key, nil }
func (s *Secret) Method() (jwt.SigningMethod, error) { return s.method, nil }
