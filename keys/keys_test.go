package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gjwt "github.com/MrEthical07/goGuard/jwt"
)

var (
	rsaOnce sync.Once
	rsaKey  *rsa.PrivateKey
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaOnce.Do(func() {
		var err error
		rsaKey, err = GenerateRSA(2048)
		require.NoError(t, err)
	})
	return rsaKey
}

func encodePair(t *testing.T, priv any, pub any, passphrase []byte) ([]byte, []byte) {
	t.Helper()
	privPEM, err := EncodePrivateKey(priv, passphrase)
	require.NoError(t, err)
	pubPEM, err := EncodePublicKey(pub)
	require.NoError(t, err)
	return privPEM, pubPEM
}

func TestFromConfigPrecedence(t *testing.T) {
	_, err := FromConfig(Config{Algorithm: "HS256"})
	require.ErrorIs(t, err, ErrKeyNotAvailable)

	p, err := FromConfig(Config{Algorithm: "HS256", Secret: []byte("s3cr3t")})
	require.NoError(t, err)
	assert.IsType(t, &Secret{}, p)

	key := testRSAKey(t)
	privPEM, pubPEM := encodePair(t, key, &key.PublicKey, nil)
	p, err = FromConfig(Config{Algorithm: "RS256", Secret: []byte("s3cr3t"), PrivateKey: privPEM, PublicKey: pubPEM})
	require.NoError(t, err)
	assert.IsType(t, &KeyPair{}, p)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o644))
	p, err = FromConfig(Config{Algorithm: "RS512", PrivateKeyPath: privPath, PublicKeyPath: pubPath})
	require.NoError(t, err)
	m, err := p.Method()
	require.NoError(t, err)
	assert.Equal(t, "RS512", m.Alg())
}

func TestSecretAlgorithms(t *testing.T) {
	_, err := NewSecret("", []byte("k"))
	require.ErrorIs(t, err, ErrAlgorithmMissing)

	_, err = NewSecret("RS256", []byte("k"))
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	for _, alg := range []string{"HS256", "HS384", "HS512", "HS224"} {
		s, err := NewSecret(alg, []byte("k"))
		require.NoError(t, err, alg)
		m, _ := s.Method()
		assert.Equal(t, alg, m.Alg())
	}
}

func TestKeyPairAlgorithms(t *testing.T) {
	key := testRSAKey(t)
	privPEM, pubPEM := encodePair(t, key, &key.PublicKey, nil)

	_, err := NewKeyPair("", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrAlgorithmMissing)
	_, err = NewKeyPair("HS256", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	_, err = NewKeyPair("ES256K", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey, "ES256K needs a secp256k1 key")
	_, err = NewKeyPair("ES256", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey)

	ec, err := GenerateEC("secp384r1")
	require.NoError(t, err)
	ecPriv, ecPub := encodePair(t, ec, &ec.PublicKey, nil)
	_, err = NewKeyPair("ES256", ecPriv, ecPub, nil)
	require.ErrorIs(t, err, ErrInvalidKey, "curve must match algorithm")
	_, err = NewKeyPair("ES384", ecPriv, ecPub, nil)
	require.NoError(t, err)
}

func TestKeyPairMismatch(t *testing.T) {
	a, err := GenerateEC("")
	require.NoError(t, err)
	b, err := GenerateEC("prime256v1")
	require.NoError(t, err)
	privPEM, _ := encodePair(t, a, &a.PublicKey, nil)
	_, pubPEM := encodePair(t, b, &b.PublicKey, nil)

	_, err = NewKeyPair("ES256", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptedPKCS8(t *testing.T) {
	ec, err := GenerateEC("")
	require.NoError(t, err)
	privPEM, pubPEM := encodePair(t, ec, &ec.PublicKey, []byte("hunter2"))

	block, _ := pem.Decode(privPEM)
	require.Equal(t, "ENCRYPTED PRIVATE KEY", block.Type)

	_, err = NewKeyPair("ES256", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = NewKeyPair("ES256", privPEM, pubPEM, []byte("wrong"))
	require.ErrorIs(t, err, ErrInvalidKey)

	kp, err := NewKeyPair("ES256", privPEM, pubPEM, []byte("hunter2"))
	require.NoError(t, err)
	assertSignsAndVerifies(t, kp)
}

func TestLegacyEncryptedPEM(t *testing.T) {
	key := testRSAKey(t)
	//lint:ignore SA1019 producing the legacy format under test
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), []byte("pass"), x509.PEMCipherAES256)
	require.NoError(t, err)
	_, pubPEM := encodePair(t, key, &key.PublicKey, nil)

	kp, err := NewKeyPair("RS256", pem.EncodeToMemory(block), pubPEM, []byte("pass"))
	require.NoError(t, err)
	assertSignsAndVerifies(t, kp)
}

func TestPlainPEMForms(t *testing.T) {
	key := testRSAKey(t)
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pkcs1Pub := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})
	kp, err := NewKeyPair("RS256", pkcs1, pkcs1Pub, nil)
	require.NoError(t, err)
	assertSignsAndVerifies(t, kp)

	ec, err := GenerateEC("secp384r1")
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(ec)
	require.NoError(t, err)
	sec1 := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	_, ecPub := encodePair(t, ec, &ec.PublicKey, nil)
	kp, err = NewKeyPair("ES384", sec1, ecPub, nil)
	require.NoError(t, err)
	assertSignsAndVerifies(t, kp)

	_, err = ParsePrivateKey(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}), nil)
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParsePublicKey(pem.EncodeToMemory(&pem.Block{Type: "OPENSSH PRIVATE KEY", Bytes: der}))
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestES256KRoundTrip(t *testing.T) {
	key, err := GenerateSecp256k1()
	require.NoError(t, err)
	privPEM, err := EncodeSecp256k1PrivateKey(key)
	require.NoError(t, err)
	pubPEM, err := EncodeSecp256k1PublicKey(key.PubKey())
	require.NoError(t, err)

	block, _ := pem.Decode(privPEM)
	require.Equal(t, "EC PRIVATE KEY", block.Type)

	p, err := FromConfig(Config{Algorithm: "ES256K", PrivateKey: privPEM, PublicKey: pubPEM})
	require.NoError(t, err)
	m, err := p.Method()
	require.NoError(t, err)
	assert.Equal(t, "ES256K", m.Alg())
	assertSignsAndVerifies(t, p)

	sk, err := p.SigningKey()
	require.NoError(t, err)
	vk, err := p.VerificationKey()
	require.NoError(t, err)
	codec := gjwt.Codec{}
	raw, err := codec.Encode(gjwt.Claims{Subject: "7", IssuedAt: 10, ExpiresAt: 1 << 40, Type: gjwt.Refresh}, sk, m)
	require.NoError(t, err)
	claims, headers, err := codec.Decode(raw, vk, m)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "ES256K", headers["alg"])

	parts := strings.Split(raw, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	other, err := GenerateSecp256k1()
	require.NoError(t, err)
	otherPub, err := EncodeSecp256k1PublicKey(other.PubKey())
	require.NoError(t, err)
	_, err = NewKeyPair("ES256K", privPEM, otherPub, nil)
	require.ErrorIs(t, err, ErrInvalidKey)

	_, _, err = codec.Decode(raw, other.PubKey(), m)
	require.ErrorIs(t, err, gjwt.ErrInvalidToken)

	_, err = NewKeyPair("ES256", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey, "x509 does not accept secp256k1 for ES256")
}

func TestES256KRejectsNISTCurve(t *testing.T) {
	ec, err := GenerateEC("prime256v1")
	require.NoError(t, err)
	privPEM, pubPEM := encodePair(t, ec, &ec.PublicKey, nil)
	_, err = NewKeyPair("ES256K", privPEM, pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestES256KLegacyEncryptedPEM(t *testing.T) {
	key, err := GenerateSecp256k1()
	require.NoError(t, err)
	privPEM, err := EncodeSecp256k1PrivateKey(key)
	require.NoError(t, err)
	pubPEM, err := EncodeSecp256k1PublicKey(key.PubKey())
	require.NoError(t, err)

	plain, _ := pem.Decode(privPEM)
	//lint:ignore SA1019 producing the legacy format under test
	block, err := x509.EncryptPEMBlock(rand.Reader, plain.Type, plain.Bytes, []byte("pass"), x509.PEMCipherAES256)
	require.NoError(t, err)

	_, err = NewKeyPair("ES256K", pem.EncodeToMemory(block), pubPEM, nil)
	require.ErrorIs(t, err, ErrInvalidKey)
	kp, err := NewKeyPair("ES256K", pem.EncodeToMemory(block), pubPEM, []byte("pass"))
	require.NoError(t, err)
	assertSignsAndVerifies(t, kp)
}

func TestGenerateRSARejectsSmallKeys(t *testing.T) {
	_, err := GenerateRSA(1024)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret(DefaultSecretLength)
	require.NoError(t, err)
	assert.Len(t, s, DefaultSecretLength)
}

func assertSignsAndVerifies(t *testing.T, p Provider) {
	t.Helper()
	sk, err := p.SigningKey()
	require.NoError(t, err)
	vk, err := p.VerificationKey()
	require.NoError(t, err)
	m, err := p.Method()
	require.NoError(t, err)

	codec := gjwt.Codec{}
	claims := gjwt.Claims{Subject: "1", IssuedAt: 1, ExpiresAt: 1 << 40, Type: gjwt.Access}
	raw, err := codec.Encode(claims, sk, m)
	require.NoError(t, err)
	_, _, err = codec.Decode(raw, vk, m)
	require.NoError(t, err)
}
