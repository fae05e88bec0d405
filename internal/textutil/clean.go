package textutil

import (
	"strconv"
	"strings"
	"unicode"
)

// CleanControlChars removes C0 control characters other than tab, newline,
// and carriage return, plus DEL. Vendor pages occasionally embed these and
// they confuse tokenizers downstream.
func CleanControlChars(s string) string {
	if strings.IndexFunc(s, isStrippedControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isStrippedControl(r) {
			return -1
		}
		return r
	}, s)
}

func isStrippedControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return r < 0x20 || r == 0x7f
}

// ParseCount reads a vote count such as "1,234 people" or "12 users": the
// first whitespace-separated token with thousands separators removed.
func ParseCount(text string) (int, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, false
	}
	token := strings.NewReplacer(",", "", ".", "", " ", "").Replace(fields[0])
	if token == "" {
		return 0, false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// CollapseSpace trims s and collapses internal whitespace runs to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
