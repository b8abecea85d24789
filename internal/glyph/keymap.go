package glyph

import "strings"

// KeyMap translates physical keys into glyphs.
type KeyMap map[rune]string

// Dachen is the standard Zhuyin layout on a QWERTY keyboard.
var Dachen = KeyMap{
	'1': "ㄅ", 'q': "ㄆ", 'a': "ㄇ", 'z': "ㄈ",
	'2': "ㄉ", 'w': "ㄊ", 's': "ㄋ", 'x': "ㄌ",
	'e': "ㄍ", 'd': "ㄎ", 'c': "ㄏ",
	'r': "ㄐ", 'f': "ㄑ", 'v': "ㄒ",
	'5': "ㄓ", 't': "ㄔ", 'g': "ㄕ", 'b': "ㄖ",
	'y': "ㄗ", 'h': "ㄘ", 'n': "ㄙ",
	'u': "ㄧ", 'j': "ㄨ", 'm': "ㄩ",
	'8': "ㄚ", 'i': "ㄛ", 'k': "ㄜ", ',': "ㄝ",
	'9': "ㄞ", 'o': "ㄟ", 'l': "ㄠ", '.': "ㄡ",
	'0': "ㄢ", 'p': "ㄣ", ';': "ㄤ", '/': "ㄥ",
	'-': "ㄦ",
}

// KeyMapByName returns a named key map. "none" and "" return nil.
func KeyMapByName(name string) (KeyMap, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, true
	case "dachen":
		return Dachen, true
	default:
		return nil, false
	}
}

// Translate maps a typed rune to a glyph of alphabet. Runes that already are
// glyphs of the alphabet pass through unchanged.
func (k KeyMap) Translate(r rune, alphabet []string) (string, bool) {
	s := string(r)
	if Contains(alphabet, s) {
		return s, true
	}
	if k == nil {
		return "", false
	}
	g, ok := k[r]
	if !ok {
		g, ok = k[toLower(r)]
	}
	if !ok || !Contains(alphabet, g) {
		return "", false
	}
	return g, true
}

// KeyFor returns the physical key for a glyph, if any.
func (k KeyMap) KeyFor(g string) (rune, bool) {
	for r, v := range k {
		if v == g {
			return r, true
		}
	}
	return 0, false
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
