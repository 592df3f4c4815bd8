package domain

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MinTitleLength   = 2
	MaxTitleLength   = 100
	MaxCommentLength = 2000
	MaxReasonLength  = 500
)

// NormalizeTitle приводит заголовок к NFC и проверяет длину в символах после trim.
func NormalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(norm.NFC.String(title))
	n := utf8.RuneCountInString(t)
	if n == 0 {
		return "", Validationf("title cannot be empty")
	}
	if n < MinTitleLength {
		return "", Validationf("title must be at least %d characters", MinTitleLength)
	}
	if n > MaxTitleLength {
		return "", Validationf("title must be at most %d characters", MaxTitleLength)
	}
	return t, nil
}

func NormalizeComment(content string) (string, error) {
	c := strings.TrimSpace(norm.NFC.String(content))
	if c == "" {
		return "", Validationf("comment content cannot be empty")
	}
	if utf8.RuneCountInString(c) > MaxCommentLength {
		return "", Validationf("comment content is too long")
	}
	return c, nil
}

func NormalizeReason(reason string) (string, error) {
	r := strings.TrimSpace(norm.NFC.String(reason))
	if r == "" {
		return "", Validationf("report reason cannot be empty")
	}
	if utf8.RuneCountInString(r) > MaxReasonLength {
		return "", Validationf("report reason is too long")
	}
	return r, nil
}
