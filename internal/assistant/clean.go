package assistant

import (
	"regexp"
	"strings"
)

const maxReplyRunes = 1500

var (
	headingPattern = regexp.MustCompile(`(?m)#{1,6}\s*`)
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// CleanWhatsAppText adapts model markdown to WhatsApp formatting and caps the length.
func CleanWhatsAppText(text string) string {
	text = headingPattern.ReplaceAllString(text, "")
	text = boldPattern.ReplaceAllString(text, "*$1*")
	if runes := []rune(text); len(runes) > maxReplyRunes {
		text = string(runes[:maxReplyRunes-3]) + "..."
	}
	return strings.TrimSpace(text)
}
