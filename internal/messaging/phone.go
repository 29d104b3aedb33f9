package messaging

import "strings"

const whatsappPrefix = "whatsapp:"

// NormalizeE164 drops the whatsapp: scheme and any formatting, returning +<digits>.
func NormalizeE164(value string) string {
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// WhatsAppAddress renders a phone as a Twilio WhatsApp address.
func WhatsAppAddress(phone string) string {
	e164 := NormalizeE164(phone)
	if e164 == "" {
		return ""
	}
	return whatsappPrefix + e164
}

func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
