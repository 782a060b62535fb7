package services

import (
	"strings"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

// Slugify transliterates s to ASCII, lowercases it and joins every run of
// characters outside [a-z0-9] into a single hyphen. The result may be empty.
func Slugify(s string) string {
	folded := strings.ToLower(unidecode.Unidecode(norm.NFC.String(s)))

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// hasRandomSuffix reports whether slug is base followed by "-" and n base-36
// characters. It checks shape only, callers match names to tell twins apart.
func hasRandomSuffix(slug, base string, n int) bool {
	if !strings.HasPrefix(slug, base+"-") {
		return false
	}
	suffix := slug[len(base)+1:]
	if len(suffix) != n {
		return false
	}
	for _, r := range suffix {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
