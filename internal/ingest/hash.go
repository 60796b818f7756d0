package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/SFDataHub/scanhub/internal/scan"
)

// PayloadHash computes the dedup fingerprint of a normalized payload.
// json.Marshal emits struct fields in declaration order, so identical
// normalized content always produces identical bytes no matter how
// the source document was formatted or key-ordered; any difference in
// an entity field changes the hash.
func PayloadHash(p *scan.Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload for hashing: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
