package duitku

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// md5Hex returns the 32-character lowercase hex MD5 digest of text.
// Duitku computes the same digest independently on its side, so the output
// must match RFC 1321 bit-for-bit: any deviation silently breaks payment
// acceptance.
func md5Hex(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// sha256Hex returns the 64-character lowercase hex SHA-256 digest of text.
func sha256Hex(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// signaturesEqual compares two signature strings in constant time. The
// callback signature is the only authentication on that endpoint, so we do
// not leak match length through timing.
func signaturesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
