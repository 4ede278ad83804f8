package detect

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeText brings display metadata into NFC form and collapses runs of
// whitespace so identical titles compare equal regardless of how a platform
// renders them.
func normalizeText(value string) string {
	value = norm.NFC.String(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	return strings.Join(strings.Fields(value), " ")
}
