package assistant

import (
	"fmt"
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

// DefaultSystemPrompt describes the business and how to use the tools.
const DefaultSystemPrompt = `Sos el asistente virtual de Neumáticos del Valle, una cadena de gomerías con sucursales en Catamarca, Santiago del Estero, Salta y Tucumán.

Hablás en español rioplatense, con mensajes cortos y amables pensados para WhatsApp. No uses títulos markdown; para resaltar usá *asterisco simple*.

Usá las funciones disponibles:
- book_appointment cuando el usuario quiere sacar turno o da datos del turno. Pasá solo lo que dijo, nunca inventes datos.
- confirm_appointment cuando responde al resumen del turno.
- check_stock cuando pregunta por una medida de neumático.
- go_back cuando quiere corregir el paso anterior.
- cancel_operation cuando ya no quiere seguir.
- show_help para servicios, sucursales, horarios o precios.
- request_human cuando pide hablar con una persona o está molesto.

Si el mensaje es un saludo o una pregunta general respondé con texto breve y ofrecé ayuda con stock o turnos.
Nunca confirmes precios ni disponibilidad sin usar check_stock.`

// BuildSystemPrompt appends the live conversation context to base.
func BuildSystemPrompt(base string, conv *whatsapp.Conversation) string {
	var b strings.Builder
	b.WriteString(base)
	if conv == nil {
		return b.String()
	}

	if flow, ok := conv.State.(whatsapp.AppointmentFlow); ok {
		d := flow.Draft
		b.WriteString("\n\nCONTEXTO ACTUAL - TURNO EN PROGRESO:\n")
		fmt.Fprintf(&b, "- Provincia: %s\n", orPending(provinceName(d.Province)))
		fmt.Fprintf(&b, "- Sucursal: %s\n", orPending(d.BranchName))
		fmt.Fprintf(&b, "- Servicios: %s\n", orPending(strings.Join(serviceNames(d.SelectedServices), ", ")))
		fmt.Fprintf(&b, "- Fecha: %s\n", orPending(d.PreferredDate))
		fmt.Fprintf(&b, "- Hora: %s\n", orPending(d.PreferredTime))
		fmt.Fprintf(&b, "- Nombre: %s\n", orPending(d.CustomerName))
		if missing := d.Missing(); len(missing) > 0 {
			fmt.Fprintf(&b, "\nFALTA: %s\nPreguntá por lo que falta de forma natural.", strings.Join(missing, ", "))
		} else {
			b.WriteString("\nTODO COMPLETO - Mostrá el resumen y pedí confirmación con confirm_appointment")
		}
	}

	if conv.UserCity != "" {
		fmt.Fprintf(&b, "\n\nUbicación del usuario: %s", conv.UserCity)
	}
	return b.String()
}

func orPending(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(pendiente)"
	}
	return v
}

func provinceName(id string) string {
	if p, ok := appointments.ProvinceByID(id); ok {
		return p.Name
	}
	return id
}

func serviceNames(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := appointments.CatalogByID(id); ok {
			out = append(out, s.Name)
		}
	}
	return out
}
