package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// RandomHex returns a hex-encoded string built from n bytes of
// cryptographically secure random data. Used for registration, reset and
// email-verification tokens; only opaque values ever reach the client.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NumericCode returns a fixed-length numeric one-time code drawn from
// crypto/rand. Leading zeros are allowed, so the keyspace is exactly
// 10^length.
func NumericCode(length int) (string, error) {
	const digits = "0123456789"
	buf := make([]byte, length)
	max := big.NewInt(int64(len(digits)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf), nil
}
