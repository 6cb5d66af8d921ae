package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/youmark/pkcs8"

	gjwt "github.com/MrEthical07/goGuard/jwt"
)

var pairMethods = map[string]jwt.SigningMethod{
	"RS256":  jwt.SigningMethodRS256,
	"RS384":  jwt.SigningMethodRS384,
	"RS512":  jwt.SigningMethodRS512,
	"ES256":  jwt.SigningMethodES256,
	"ES384":  jwt.SigningMethodES384,
	"ES256K": gjwt.SigningMethodES256K,
}

// KeyPair is an asymmetric RSA, ECDSA or secp256k1 key pair.
type KeyPair struct {
	private any
	public  any
	method  jwt.SigningMethod
}

type publicKeyEqualer interface {
	Equal(crypto.PublicKey) bool
}

// NewKeyPair parses PEM encoded keys and checks they belong together and fit alg.
// passphrase decrypts encrypted private keys and is ignored for plain ones.
func NewKeyPair(alg string, privatePEM, publicPEM, passphrase []byte) (*KeyPair, error) {
	if strings.TrimSpace(alg) == "" {
		return nil, ErrAlgorithmMissing
	}
	method, ok := pairMethods[alg]
	if !ok {
		return nil, fmt.Errorf("%w: algorithm %s is not supported for key pairs", ErrUnsupportedAlgorithm, alg)
	}
	if method == gjwt.SigningMethodES256K {
		return newSecp256k1Pair(privatePEM, publicPEM, passphrase)
	}

	private, err := ParsePrivateKey(privatePEM, passphrase)
	if err != nil {
		return nil, err
	}
	public, err := ParsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}

	eq, ok := private.Public().(publicKeyEqualer)
	if !ok || !eq.Equal(public) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}
	if err := checkKeyFitsMethod(method, public); err != nil {
		return nil, err
	}

	return &KeyPair{private: private, public: public, method: method}, nil
}

func newSecp256k1Pair(privatePEM, publicPEM, passphrase []byte) (*KeyPair, error) {
	private, err := parseSecp256k1PrivateKey(privatePEM, passphrase)
	if err != nil {
		return nil, err
	}
	public, err := parseSecp256k1PublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	if !private.PubKey().IsEqual(public) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}
	return &KeyPair{private: private, public: public, method: gjwt.SigningMethodES256K}, nil
}

func (k *KeyPair) SigningKey() (any, error)           { return k.private, nil }
func (k *KeyPair) VerificationKey() (any, error)      { return k.public, nil }
func (k *KeyPair) Method() (jwt.SigningMethod, error) { return k.method, nil }

func checkKeyFitsMethod(method jwt.SigningMethod, public crypto.PublicKey) error {
	switch m := method.(type) {
	case *jwt.SigningMethodRSA:
		if _, ok := public.(*rsa.PublicKey); !ok {
			return fmt.Errorf("%w: %s requires an RSA key", ErrInvalidKey, m.Alg())
		}
	case *jwt.SigningMethodECDSA:
		pub, ok := public.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: %s requires an ECDSA key", ErrInvalidKey, m.Alg())
		}
		if pub.Curve.Params().BitSize != m.CurveBits {
			return fmt.Errorf("%w: %s requires a %d-bit curve", ErrInvalidKey, m.Alg(), m.CurveBits)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, method.Alg())
	}
	return nil
}

// ParsePrivateKey decodes an RSA or ECDSA private key from PEM. Legacy encrypted PEM
// (Proc-Type: 4,ENCRYPTED) and encrypted PKCS#8 blocks require passphrase.
func ParsePrivateKey(data, passphrase []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: private key is not PEM encoded", ErrInvalidKey)
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("%w: private key is encrypted but no passphrase is configured", ErrInvalidKey)
		}
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		default:
			return nil, fmt.Errorf("%w: unsupported private key type %T", ErrInvalidKey, key)
		}
	}

	der, err := decryptLegacy(block, passphrase)
	if err != nil {
		return nil, err
	}
	plain := pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der})

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := jwt.ParseRSAPrivateKeyFromPEM(plain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := jwt.ParseECPrivateKeyFromPEM(plain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		if key, err := jwt.ParseRSAPrivateKeyFromPEM(plain); err == nil {
			return key, nil
		}
		key, err := jwt.ParseECPrivateKeyFromPEM(plain)
		if err != nil {
			return nil, fmt.Errorf("%w: PKCS#8 key is neither RSA nor ECDSA: %v", ErrInvalidKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
}

// ParsePublicKey decodes an RSA or ECDSA public key from a PKIX, PKCS#1 or certificate PEM block.
func ParsePublicKey(data []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: public key is not PEM encoded", ErrInvalidKey)
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := jwt.ParseRSAPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return key, nil
	case "PUBLIC KEY", "CERTIFICATE":
		if key, err := jwt.ParseRSAPublicKeyFromPEM(data); err == nil {
			return key, nil
		}
		key, err := jwt.ParseECPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("%w: public key is neither RSA nor ECDSA: %v", ErrInvalidKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
}
