package sensor

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// unnamed is returned by Clean when nothing usable is left of a name.
const unnamed = "unnamed"

// germanReplacer spells out umlauts the way German speakers do, before the
// generic ASCII folding would reduce "ü" to "u".
var germanReplacer = strings.NewReplacer(
	" ", "-",
	"ä", "ae",
	"Ä", "Ae",
	"ö", "oe",
	"Ö", "Oe",
	"ü", "ue",
	"Ü", "Ue",
	"ß", "ss",
)

// Clean turns a display name into an identifier that is safe in MQTT topics
// and Home Assistant discovery ids.
//
// Steps:
//  1. Trim surrounding whitespace
//  2. Replace spaces with "-" and spell out German umlauts and ß
//  3. Fold remaining Unicode to ASCII
//  4. Replace every character outside [A-Za-z0-9_-] with "-"
//
// Case is preserved; topic builders lowercase the result.
//
// Example:
//
//	sensor.Clean("Büro@Süd")    // "Buero-Sued"
//	sensor.Clean(" Küche Ost ") // "Kueche-Ost"
func Clean(name string) string {
	clean := germanReplacer.Replace(strings.TrimSpace(name))
	clean = unidecode.Unidecode(clean)

	var b strings.Builder
	b.Grow(len(clean))
	for i := 0; i < len(clean); i++ {
		c := clean[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('-')
		}
	}

	if strings.Trim(b.String(), "-") == "" {
		return unnamed
	}
	return b.String()
}
