// Package privacy implements the field-level privacy primitives used by
// deal records: opaque counterparty aliases, authenticated field
// encryption, and the deterministic deal hash used at purge time.
package privacy

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Role tags a generated alias by which side of the deal it labels.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdvertiser Role = "advertiser"
)

// GenerateAlias returns an opaque, non-reversible label such as
// "owner-a1b2" or "advertiser-9f3c". It is not a secret — it exists only
// to avoid showing either party the other's real handle on the wire.
func GenerateAlias(role Role) (string, error) {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("privacy: generate alias: %w", err)
	}
	return fmt.Sprintf("%s-%s", role, hex.EncodeToString(buf)), nil
}
