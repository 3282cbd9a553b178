package heuristics

import (
	"strings"
	"testing"
)

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"no keywords", "https://github.com", 0},
		{"single keyword", "http://example.com/login", 10},
		{"case insensitive", "URGENT: Verify now", 20},
		{"repeated keyword counts once", "login login login", 10},
		{"capped", "login verify update account secure banking urgent winner prize", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeywordScore(tt.text); got != tt.want {
				t.Errorf("KeywordScore(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestKeywordScoreNeverExceedsCap(t *testing.T) {
	text := strings.Repeat(strings.Join(SuspiciousKeywords, "-"), 20)
	if got := KeywordScore(text); got > KeywordCap {
		t.Fatalf("KeywordScore exceeded cap: %d", got)
	}
}

func TestURLScores(t *testing.T) {
	short := "http://example.com"
	long := "http://example.com/" + strings.Repeat("a", 60)

	if got := LengthScore(short); got != 0 {
		t.Errorf("LengthScore(short) = %d, want 0", got)
	}
	if got := LengthScore(long); got != LongURLPoints {
		t.Errorf("LengthScore(long) = %d, want %d", got, LongURLPoints)
	}
	if got := LengthScore(strings.Repeat("a", 75)); got != 0 {
		t.Errorf("LengthScore at exactly 75 chars = %d, want 0", got)
	}
	if got := IPLiteralScore("http://192.168.1.1/login"); got != IPLiteralPoints {
		t.Errorf("IPLiteralScore = %d, want %d", got, IPLiteralPoints)
	}
	if got := IPLiteralScore("http://example.com/v1.2.3"); got != 0 {
		t.Errorf("IPLiteralScore on version string = %d, want 0", got)
	}
}

func TestExtensionScore(t *testing.T) {
	tests := []struct {
		filename string
		want     int
	}{
		{"setup.exe", 30},
		{"SETUP.EXE", 30},
		{"run.bat", 30},
		{"install.sh", 30},
		{"macro.vbs", 30},
		{"screen.scr", 30},
		{"report.pdf", 0},
		{"exe", 0},
		{"archive.exe.txt", 0},
	}

	for _, tt := range tests {
		if got := ExtensionScore(tt.filename); got != tt.want {
			t.Errorf("ExtensionScore(%q) = %d, want %d", tt.filename, got, tt.want)
		}
	}
}

func TestIsImage(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.bmp", "e.webp"} {
		if !IsImage(name) {
			t.Errorf("IsImage(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.gif", "b.exe", "png"} {
		if IsImage(name) {
			t.Errorf("IsImage(%q) = true, want false", name)
		}
	}
}
