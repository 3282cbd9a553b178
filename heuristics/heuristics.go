package heuristics

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	KeywordPoints   = 10
	KeywordCap      = 50
	LongURLLength   = 75
	LongURLPoints   = 10
	IPLiteralPoints = 30
	RiskyFilePoints = 30
)

// SuspiciousKeywords is the fixed vocabulary matched case-insensitively as substrings.
var SuspiciousKeywords = []string{
	"login",
	"verify",
	"update",
	"account",
	"secure",
	"banking",
	"urgent",
	"winner",
	"prize",
}

var riskyExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".sh":  true,
	".vbs": true,
	".scr": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
}

var ipLiteral = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// KeywordScore adds KeywordPoints per distinct vocabulary word found in text,
// capped at KeywordCap.
func KeywordScore(text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, word := range SuspiciousKeywords {
		if strings.Contains(lower, word) {
			score += KeywordPoints
		}
	}
	if score > KeywordCap {
		return KeywordCap
	}
	return score
}

// LengthScore returns LongURLPoints for URLs longer than LongURLLength.
func LengthScore(url string) int {
	if len(url) > LongURLLength {
		return LongURLPoints
	}
	return 0
}

// IPLiteralScore returns IPLiteralPoints when text contains a dotted-quad IPv4 literal.
func IPLiteralScore(text string) int {
	if ipLiteral.MatchString(text) {
		return IPLiteralPoints
	}
	return 0
}

// ExtensionScore returns RiskyFilePoints for executable or script extensions.
func ExtensionScore(filename string) int {
	if riskyExtensions[extension(filename)] {
		return RiskyFilePoints
	}
	return 0
}

// IsImage reports whether filename has an image extension the QR decoder accepts.
func IsImage(filename string) bool {
	return imageExtensions[extension(filename)]
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
