package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize puts a label into canonical form: NFC, control and zero-width
// characters removed, inner whitespace collapsed, trimmed.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\u200b', r == '\u200c', r == '\u200d', r == '\ufeff':
			return -1
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ocrConfusions maps characters Tesseract commonly substitutes in
// numeric labels.
var ocrConfusions = strings.NewReplacer("O", "0", "o", "0", "I", "1", "l", "1", "|", "1")

// NormalizeOCR additionally strips spaces (OCR splits short tokens) and,
// when digitsOnly is set, maps look-alike letters to digits.
func NormalizeOCR(s string, digitsOnly bool) string {
	s = strings.ReplaceAll(Normalize(s), " ", "")
	if digitsOnly {
		s = ocrConfusions.Replace(s)
	}
	return s
}
