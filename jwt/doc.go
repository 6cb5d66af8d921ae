// Package jwt encodes and decodes signed revocable tokens. Claims carry the reserved
// issuance fields plus free-form custom claims, and Decode enforces the configured algorithm,
// signature and temporal window before any stateful check runs.
package jwt
