// Package glyph defines the practice alphabet and its key layout.
package glyph

// Class groups glyphs for key layout styling.
type Class int

const (
	ClassFinal Class = iota
	ClassInitial
	ClassMedial
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassInitial:
		return "initial"
	case ClassMedial:
		return "medial"
	default:
		return "final"
	}
}

// Zhuyin is the default practice alphabet in keyboard order.
var Zhuyin = []string{
	"ㄅ", "ㄆ", "ㄇ", "ㄈ", "ㄉ", "ㄊ", "ㄋ", "ㄌ", "ㄍ", "ㄎ", "ㄏ",
	"ㄐ", "ㄑ", "ㄒ", "ㄓ", "ㄔ", "ㄕ", "ㄖ", "ㄗ", "ㄘ", "ㄙ",
	"ㄧ", "ㄨ", "ㄩ",
	"ㄚ", "ㄛ", "ㄜ", "ㄝ", "ㄞ", "ㄟ", "ㄠ", "ㄡ", "ㄢ", "ㄣ", "ㄤ", "ㄥ", "ㄦ",
}

// Rows is the on-screen key layout.
var Rows = [][]string{
	{"ㄅ", "ㄆ", "ㄇ", "ㄈ", "ㄉ", "ㄊ", "ㄋ", "ㄌ", "ㄍ", "ㄎ", "ㄏ"},
	{"ㄐ", "ㄑ", "ㄒ", "ㄓ", "ㄔ", "ㄕ", "ㄖ", "ㄗ", "ㄘ", "ㄙ"},
	{"ㄧ", "ㄨ", "ㄩ", "ㄚ", "ㄛ", "ㄜ", "ㄝ", "ㄞ", "ㄟ"},
	{"ㄠ", "ㄡ", "ㄢ", "ㄣ", "ㄤ", "ㄥ", "ㄦ"},
}

var initials = setOf(Zhuyin[:21])

var medials = setOf(Zhuyin[21:24])

// ClassOf classifies a glyph. Anything that is not an initial or medial is a final.
func ClassOf(g string) Class {
	if _, ok := initials[g]; ok {
		return ClassInitial
	}
	if _, ok := medials[g]; ok {
		return ClassMedial
	}
	return ClassFinal
}

// Contains reports whether g is part of alphabet.
func Contains(alphabet []string, g string) bool {
	for _, a := range alphabet {
		if a == g {
			return true
		}
	}
	return false
}

func setOf(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}
