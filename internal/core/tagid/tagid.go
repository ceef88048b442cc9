// Package tagid canonicalizes raw reader output: tag identifiers and signal strings
//
// Identifier pipeline
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKC normalization
// 3 Remove control and format chars (ZWJ, BOM, stray CR/LF from serial bridges)
// 4 Width fold fullwidth to ASCII
// 5 Upper casing so hex EPCs compare equal regardless of reader firmware
// 6 Drop all whitespace ("E280 1160" and "E2801160" are the same tag)
package tagid

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Signal bounds in dBm
const (
	MinSignal     = -120
	MaxSignal     = 0
	DefaultSignal = -60
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cc)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			cases.Upper(language.Und),
		)
	},
}

// Normalize returns the canonical form of a raw identifier, "" when nothing usable remains
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s := strings.ToValidUTF8(raw, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return ""
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, ns)
}

// ParseSignal turns a driver specific RSSI string into dBm clamped to [MinSignal, MaxSignal]
// accepts "-52", "-52.4", "-52 dBm"; anything else yields DefaultSignal
func ParseSignal(raw string) int {
	s := strings.TrimSpace(raw)
	if len(s) >= 3 && strings.EqualFold(s[len(s)-3:], "dbm") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	if s == "" {
		return DefaultSignal
	}
	if v, err := strconv.Atoi(s); err == nil {
		return Clamp(v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultSignal
	}
	return Clamp(int(math.Round(f)))
}

// Clamp bounds v to the valid signal range
func Clamp(v int) int {
	return min(max(v, MinSignal), MaxSignal)
}
