package format

import (
	"fmt"
	"regexp"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

var (
	mdV1Re = regexp.MustCompile("([_*`\\[])")
	// Plain text.
	mdV2Re = regexp.MustCompile(`([\\_*\[\]()~` + "`" + `>#+\-=|{}.!])`)
	// Inside pre and code entities.
	mdV2CodeRe = regexp.MustCompile("([`\\\\])")
	// Inside the (...) part of inline links.
	mdV2LinkRe = regexp.MustCompile(`([)\\])`)
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// For V2, entityType "pre", "code" and "text_link" select the reduced
// escaping Telegram expects inside those entities.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		switch entityType {
		case "pre", "code":
			return mdV2CodeRe.ReplaceAllString(text, `\$1`), nil
		case "text_link":
			return mdV2LinkRe.ReplaceAllString(text, `\$1`), nil
		}
		return mdV2Re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// EscapeV2 escapes plain text for MarkdownV2.
func EscapeV2(text string) string {
	out, _ := EscapeMarkdown(text, MarkdownV2, "")
	return out
}

// BoldV2 wraps escaped text in MarkdownV2 bold markers.
func BoldV2(text string) string {
	return "*" + EscapeV2(text) + "*"
}

// FieldV2 renders a bold "label:" line followed by the escaped value.
func FieldV2(label, value string) string {
	return BoldV2(label+":") + "\n" + EscapeV2(value)
}
