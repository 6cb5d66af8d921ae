// Package keys resolves signing and verification material for the token codec.
//
// A Provider is either a shared Secret (HMAC family) or an asymmetric KeyPair (RSA or ECDSA).
// FromConfig selects one from configuration, preferring a key pair over a secret. Generation
// helpers back the operator commands that mint new secrets and PEM key pairs.
package keys
