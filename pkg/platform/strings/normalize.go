package strings

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey is the lookup form of a process or worker name: NFC, trimmed
// and upper-cased, so "kv3-dev" and " KV3-DEV" are the same key.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(s)))
}
