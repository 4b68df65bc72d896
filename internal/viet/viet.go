// Package viet canonicalizes free-text Vietnamese curriculum labels
// (subject and semester names) into the fixed vocabularies the exam
// engine matches on. Comparison is diacritic-insensitive, so "tin hoc"
// and "Tin học" normalize identically.
package viet

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Subjects is the fixed primary-school subject vocabulary.
var Subjects = []string{
	"Tin", "Toán", "Tiếng Việt", "Khoa học", "Lịch sử - Địa lý",
	"Đạo đức", "Công nghệ", "Âm nhạc", "Mĩ thuật",
}

// folder strips combining marks after NFD decomposition.
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and removes Vietnamese diacritics. The Vietnamese
// đ/Đ is a base letter, not a combining mark, so it is mapped by hand.
func Fold(s string) string {
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = strings.ReplaceAll(out, "đ", "d")
	return strings.TrimSpace(out)
}

var subjectAliases = map[string]string{
	"tin":              "Tin",
	"tin hoc":          "Tin",
	"toan":             "Toán",
	"tieng viet":       "Tiếng Việt",
	"khoa hoc":         "Khoa học",
	"lich su va dia ly": "Lịch sử - Địa lý",
	"lich su - dia ly": "Lịch sử - Địa lý",
	"ls-dl":            "Lịch sử - Địa lý",
	"dao duc":          "Đạo đức",
	"cong nghe":        "Công nghệ",
	"am nhac":          "Âm nhạc",
	"mi thuat":         "Mĩ thuật",
	"my thuat":         "Mĩ thuật",
}

// Subject canonicalizes a free-text subject label. Unknown labels are
// returned trimmed but otherwise untouched.
func Subject(s string) string {
	trimmed := strings.TrimSpace(s)
	if canon, ok := subjectAliases[Fold(trimmed)]; ok {
		return canon
	}
	return trimmed
}

var loneDigit = regexp.MustCompile(`\b([12])\b`)

// Semester canonicalizes a semester label to "HK1" or "HK2". Labels it
// cannot place are returned trimmed so callers can surface them.
func Semester(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	f := Fold(trimmed)
	switch {
	case strings.Contains(f, "hk1"), strings.Contains(f, "hki") && !strings.Contains(f, "hkii"),
		strings.Contains(f, "hoc ki i") && !strings.Contains(f, "hoc ki ii"):
		return "HK1"
	case strings.Contains(f, "hk2"), strings.Contains(f, "hkii"),
		strings.Contains(f, "hoc ki ii"):
		return "HK2"
	}
	if m := loneDigit.FindStringSubmatch(f); m != nil {
		return "HK" + m[1]
	}
	return trimmed
}

// SameSubject reports whether two subject labels canonicalize to the
// same vocabulary entry, ignoring case and diacritics.
func SameSubject(a, b string) bool {
	return Fold(Subject(a)) == Fold(Subject(b))
}

// SameSemester reports whether two semester labels canonicalize alike.
func SameSemester(a, b string) bool {
	return strings.EqualFold(Semester(a), Semester(b))
}
