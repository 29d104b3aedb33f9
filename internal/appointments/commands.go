package appointments

import (
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/textnorm"
)

var (
	goBackWords  = []string{"volver", "atras", "back", "anterior", "regresar"}
	cancelWords  = []string{"cancelar", "salir", "exit", "cancel", "no", "terminar"}
	confirmWords = []string{"confirmar", "si", "yes", "ok", "dale", "confirmo", "acepto"}

	intentKeywords = []string{
		"turno", "turnos", "cita", "reservar", "reserva", "agendar", "agenda",
		"sacar turno", "pedir turno", "quiero turno", "necesito turno",
		"appointment", "book", "booking",
	}
)

// IsGoBack reports whether the whole message asks to return to the previous step.
func IsGoBack(input string) bool { return matchesAny(textnorm.Fold(input), goBackWords) }

// IsCancel reports whether the whole message asks to abandon the booking.
func IsCancel(input string) bool { return matchesAny(textnorm.Fold(input), cancelWords) }

// IsConfirm reports whether the whole message confirms the booking.
func IsConfirm(input string) bool { return matchesAny(textnorm.Fold(input), confirmWords) }

// DetectIntent reports whether a free-text message asks for an appointment.
func DetectIntent(message string) bool {
	normalized := textnorm.Fold(message)
	for _, kw := range intentKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
