// Package player validates player identities and group prefixes.
package player

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// IDLength is the number of digits in a player id.
	IDLength = 5
	// GroupLength is the number of leading id digits that form a group.
	GroupLength = 3
	// MaxNameLength caps display names, in runes.
	MaxNameLength = 32
)

var (
	// ErrInvalidID reports an id that is not exactly five digits.
	ErrInvalidID = errors.New("player id must be exactly 5 digits")
	// ErrInvalidGroup reports a group prefix that is not exactly three digits.
	ErrInvalidGroup = errors.New("group prefix must be exactly 3 digits")
)

// NormalizeID strips every non-digit from raw input and validates the rest.
func NormalizeID(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

// ValidateID checks an id without normalizing it.
func ValidateID(id string) error {
	if !allDigits(id, IDLength) {
		return ErrInvalidID
	}
	return nil
}

// ValidateGroup checks a group prefix.
func ValidateGroup(group string) error {
	if !allDigits(group, GroupLength) {
		return ErrInvalidGroup
	}
	return nil
}

// GroupOf returns the group prefix of a valid id.
func GroupOf(id string) string {
	if len(id) < GroupLength {
		return id
	}
	return id[:GroupLength]
}

// NormalizeName trims a display name and caps its length.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	runes := []rune(name)
	if len(runes) > MaxNameLength {
		runes = runes[:MaxNameLength]
	}
	return string(runes)
}

func allDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
