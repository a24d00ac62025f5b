package attr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainAttributes separates attribute digests from any other SHA-256 use.
const DomainAttributes = "genesis/attributes/v1"

// Digest returns the hex SHA-256 of the canonical encoding of v, prefixed by
// the domain and a NUL separator. Strings are NFC normalized first, so
// canonically equivalent texts share a digest.
func Digest(v Value) (string, error) {
	data, err := marshalNFC(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainAttributes))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
