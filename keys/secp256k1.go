package keys

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// crypto/x509 only knows the NIST curves, so secp256k1 keys are read and written here in
// the same SEC1, PKCS#8 and PKIX containers openssl produces for them.

var (
	oidPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidSecp256k1      = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

type sec1PrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

type pkcs8PrivateKey struct {
	Version    int
	Algo       pkix.AlgorithmIdentifier
	PrivateKey []byte
}

type pkixPublicKey struct {
	Algo      pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// GenerateSecp256k1 generates a key for ES256K.
func GenerateSecp256k1() (*secp256k1.PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return key, nil
}

// EncodeSecp256k1PrivateKey writes key as an unencrypted SEC1 "EC PRIVATE KEY" block.
func EncodeSecp256k1PrivateKey(key *secp256k1.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: private key is nil", ErrInvalidKey)
	}
	pub := key.PubKey().SerializeUncompressed()
	der, err := asn1.Marshal(sec1PrivateKey{
		Version:       1,
		PrivateKey:    key.Serialize(),
		NamedCurveOID: oidSecp256k1,
		PublicKey:     asn1.BitString{Bytes: pub, BitLength: 8 * len(pub)},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}

// EncodeSecp256k1PublicKey writes key as PKIX PEM.
func EncodeSecp256k1PublicKey(key *secp256k1.PublicKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: public key is nil", ErrInvalidKey)
	}
	params, err := asn1.Marshal(oidSecp256k1)
	if err != nil {
		return nil, err
	}
	pub := key.SerializeUncompressed()
	der, err := asn1.Marshal(pkixPublicKey{
		Algo:      pkix.AlgorithmIdentifier{Algorithm: oidPublicKeyECDSA, Parameters: asn1.RawValue{FullBytes: params}},
		PublicKey: asn1.BitString{Bytes: pub, BitLength: 8 * len(pub)},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func parseSecp256k1PrivateKey(data, passphrase []byte) (*secp256k1.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: private key is not PEM encoded", ErrInvalidKey)
	}
	der, err := decryptLegacy(block, passphrase)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return parseSEC1Secp256k1(der, true)
	case "PRIVATE KEY":
		var p pkcs8PrivateKey
		if rest, err := asn1.Unmarshal(der, &p); err != nil || len(rest) > 0 {
			return nil, fmt.Errorf("%w: malformed PKCS#8 private key", ErrInvalidKey)
		}
		if !p.Algo.Algorithm.Equal(oidPublicKeyECDSA) || !isSecp256k1Params(p.Algo.Parameters) {
			return nil, fmt.Errorf("%w: ES256K requires a secp256k1 key", ErrInvalidKey)
		}
		return parseSEC1Secp256k1(p.PrivateKey, false)
	case "ENCRYPTED PRIVATE KEY":
		return nil, fmt.Errorf("%w: encrypted PKCS#8 is not supported for secp256k1 keys", ErrInvalidKey)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
}

// parseSEC1Secp256k1 decodes an ECPrivateKey structure. PKCS#8 wrapped keys carry the
// curve in the outer algorithm identifier, so requireCurve is false for them.
func parseSEC1Secp256k1(der []byte, requireCurve bool) (*secp256k1.PrivateKey, error) {
	var k sec1PrivateKey
	if rest, err := asn1.Unmarshal(der, &k); err != nil || len(rest) > 0 {
		return nil, fmt.Errorf("%w: malformed EC private key", ErrInvalidKey)
	}
	if k.Version != 1 {
		return nil, fmt.Errorf("%w: unknown EC private key version %d", ErrInvalidKey, k.Version)
	}
	if (requireCurve || len(k.NamedCurveOID) > 0) && !k.NamedCurveOID.Equal(oidSecp256k1) {
		return nil, fmt.Errorf("%w: ES256K requires a secp256k1 key", ErrInvalidKey)
	}
	if len(k.PrivateKey) == 0 || len(k.PrivateKey) > 32 {
		return nil, fmt.Errorf("%w: invalid secp256k1 scalar length", ErrInvalidKey)
	}

	var scalar [32]byte
	copy(scalar[32-len(k.PrivateKey):], k.PrivateKey)
	key := secp256k1.PrivKeyFromBytes(scalar[:])
	if key.Key.IsZero() {
		return nil, fmt.Errorf("%w: secp256k1 scalar is zero", ErrInvalidKey)
	}
	return key, nil
}

func parseSecp256k1PublicKey(data []byte) (*secp256k1.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: public key is not PEM encoded", ErrInvalidKey)
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}

	var p pkixPublicKey
	if rest, err := asn1.Unmarshal(block.Bytes, &p); err != nil || len(rest) > 0 {
		return nil, fmt.Errorf("%w: malformed public key", ErrInvalidKey)
	}
	if !p.Algo.Algorithm.Equal(oidPublicKeyECDSA) || !isSecp256k1Params(p.Algo.Parameters) {
		return nil, fmt.Errorf("%w: ES256K requires a secp256k1 key", ErrInvalidKey)
	}
	pub, err := secp256k1.ParsePubKey(p.PublicKey.RightAlign())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

func isSecp256k1Params(params asn1.RawValue) bool {
	var oid asn1.ObjectIdentifier
	if rest, err := asn1.Unmarshal(params.FullBytes, &oid); err != nil || len(rest) > 0 {
		return false
	}
	return oid.Equal(oidSecp256k1)
}

// decryptLegacy returns the DER bytes of block, decrypting Proc-Type: 4,ENCRYPTED blocks
// as written by openssl with -aes256.
func decryptLegacy(block *pem.Block, passphrase []byte) ([]byte, error) {
	//lint:ignore SA1019 legacy encrypted PEM is still produced by openssl
	if !x509.IsEncryptedPEMBlock(block) {
		return block.Bytes, nil
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: private key is encrypted but no passphrase is configured", ErrInvalidKey)
	}
	//lint:ignore SA1019 legacy encrypted PEM is still produced by openssl
	der, err := x509.DecryptPEMBlock(block, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt private key: %v", ErrInvalidKey, err)
	}
	return der, nil
}
