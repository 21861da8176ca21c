// File path: internal/kb/fingerprint.go
package kb

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives a stable content hash for raw document bytes. The
// digest depends only on the bytes themselves, never on filename or upload
// metadata, so byte-identical files always collide and anything else does
// not (within SHA-256 guarantees). The fingerprint is stored with every
// chunk and is the key exact duplicate detection filters on.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
