package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Alert is an event an operator should hear about. Handoff alerts mean the bot
// stopped answering and a person has to take the conversation.
type Alert struct {
	ConversationID string
	Phone          string
	ContactName    string
	Reason         string
	LastMessage    string
	Handoff        bool
	At             time.Time
}

// Service emails alerts to the operations inbox.
type Service struct {
	email  EmailSender
	to     string
	tz     *time.Location
	logger *logging.Logger
}

// NewService builds the alert service. With no sender or recipient, alerts are
// only logged.
func NewService(email EmailSender, to string, tz *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Service{email: email, to: strings.TrimSpace(to), tz: tz, logger: logger}
}

// Notify sends one alert.
func (s *Service) Notify(ctx context.Context, a Alert) error {
	if s.email == nil || s.to == "" {
		s.logger.Info("notify: alert not emailed, no recipient configured",
			"conversation_id", a.ConversationID, "reason", a.Reason, "handoff", a.Handoff)
		return nil
	}
	msg := EmailMessage{To: s.to, Subject: alertSubject(a), Body: s.alertBody(a)}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send alert: %w", err)
	}
	s.logger.Info("notify: alert sent", "conversation_id", a.ConversationID, "phone", logging.MaskPhone(a.Phone), "handoff", a.Handoff)
	return nil
}

func alertSubject(a Alert) string {
	who := a.ContactName
	if who == "" {
		who = a.Phone
	}
	if a.Handoff {
		return fmt.Sprintf("[WhatsApp] %s pidió hablar con una persona", who)
	}
	return fmt.Sprintf("[WhatsApp] %s - %s", a.Reason, who)
}

func (s *Service) alertBody(a Alert) string {
	var b strings.Builder
	if a.Handoff {
		b.WriteString("El bot quedó pausado en esta conversación hasta que alguien la retome desde el panel.\n\n")
	}
	fmt.Fprintf(&b, "Motivo: %s\n", a.Reason)
	if a.ContactName != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", a.ContactName)
	}
	fmt.Fprintf(&b, "Teléfono: %s\n", a.Phone)
	if !a.At.IsZero() {
		fmt.Fprintf(&b, "Fecha: %s\n", a.At.In(s.tz).Format("02/01/2006 15:04"))
	}
	if a.LastMessage != "" {
		fmt.Fprintf(&b, "\nÚltimo mensaje:\n%s\n", a.LastMessage)
	}
	fmt.Fprintf(&b, "\nConversación: %s\n", a.ConversationID)
	return b.String()
}
