package memory

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeFactKey maps a fact key to an identifier-safe form. Keys that
// change under normalization get a hash suffix of the original, so two
// distinct keys never share an identifier in practice.
func NormalizeFactKey(key string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(key),
	)
	if err != nil {
		folded = strings.ToLower(key)
	}

	var sb strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	normalized := sb.String()
	if normalized == key {
		return normalized
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return fmt.Sprintf("%s_%08x", normalized, h.Sum32())
}

// indexPrefix scopes index ids to one user.
func indexPrefix(userID string) string {
	return userID + ":"
}

// IndexID returns the similarity index id of a user's fact.
func IndexID(userID, key string) string {
	return indexPrefix(userID) + NormalizeFactKey(key)
}
