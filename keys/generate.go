package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"

	"github.com/MrEthical07/goGuard/internal"
)

// DefaultSecretLength is the length of secrets minted by GenerateSecret callers.
const DefaultSecretLength = 64

// GenerateSecret returns n random alphanumeric characters.
func GenerateSecret(n int) (string, error) {
	return internal.RandomString(n)
}

// GenerateRSA generates an RSA key of at least 2048 bits.
func GenerateRSA(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("%w: RSA key size must be at least 2048 bits", ErrInvalidKey)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	return key, nil
}

// Curve resolves an OpenSSL or NIST curve name.
func Curve(name string) (elliptic.Curve, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "prime256v1", "secp256r1", "p-256", "p256":
		return elliptic.P256(), nil
	case "secp384r1", "p-384", "p384":
		return elliptic.P384(), nil
	case "secp521r1", "p-521", "p521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: curve %q", ErrUnsupportedAlgorithm, name)
	}
}

// GenerateEC generates an ECDSA key on the named curve. An empty name selects prime256v1.
func GenerateEC(curve string) (*ecdsa.PrivateKey, error) {
	c, err := Curve(curve)
	if err != nil {
		return nil, err
	}
	key, err := ecdsa.GenerateKey(c, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ECDSA key: %w", err)
	}
	return key, nil
}

// EncodePrivateKey writes key as PKCS#8 PEM, encrypted when passphrase is non-empty.
func EncodePrivateKey(key crypto.PrivateKey, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("marshal private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
	}

	der, err := pkcs8.MarshalPrivateKey(key, passphrase, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypt private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKey writes key as PKIX PEM.
func EncodePublicKey(key crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
