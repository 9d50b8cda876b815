// Package language detects the language of short chat messages.
// Three buckets are supported: English, Arabic script, and Arabizi
// (Arabic written in Latin letters and digits).
package language

import "strings"

// Language is a detected message language.
type Language string

const (
	English Language = "english"
	Arabic  Language = "arabic"
	Arabizi Language = "arabizi"
)

// Default is the language assumed when nothing is known about a sender.
const Default = English

// Valid reports whether l is one of the three supported buckets.
func Valid(l Language) bool {
	return l == English || l == Arabic || l == Arabizi
}

// Normalize maps an unknown or empty value to Default. Matching is
// case-insensitive so values read back from storage or config survive.
func Normalize(l Language) Language {
	if v := Language(strings.ToLower(string(l))); Valid(v) {
		return v
	}
	return Default
}
