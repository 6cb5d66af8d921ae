package jwt

import (
	"crypto"
	_ "crypto/sha256"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethodHS224 is HMAC over SHA-224. golang-jwt ships HS256/384/512 only.
var SigningMethodHS224 = &jwt.SigningMethodHMAC{Name: "HS224", Hash: crypto.SHA224}

func init() {
	jwt.RegisterSigningMethod(SigningMethodHS224.Alg(), func() jwt.SigningMethod {
		return SigningMethodHS224
	})
}
