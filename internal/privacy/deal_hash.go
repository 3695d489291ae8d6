package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// HashDealData canonicalizes fields by sorting keys lexicographically and
// serializing values as compact JSON, then returns the lowercase hex SHA-256
// digest. Equal content with different key insertion order yields an equal
// hash — callers never need to pre-sort their map.
func HashDealData(fields map[string]any) (string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]canonicalEntry, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, canonicalEntry{Key: k, Value: fields[k]})
	}

	buf, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

type canonicalEntry struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}
