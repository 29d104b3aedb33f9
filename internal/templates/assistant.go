package templates

import (
	"fmt"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/weborder"
)

// Help topics accepted by Help.
const (
	TopicServices = "services"
	TopicBranches = "branches"
	TopicHours    = "hours"
	TopicPrices   = "prices"
	TopicGeneral  = "general"
)

const assistantTemplates = `
{{define "help_services"}}*Nuestros Servicios:*

{{join .Lines "\n"}}

¿Te interesa alguno?{{end}}

{{define "help_branches"}}*Sucursales:*

{{join .Lines "\n"}}

¿Querés saber la dirección de alguna?{{end}}

{{define "web_order_branch"}}¡Hola! Recibí tu pedido para *{{.Branch}}*:

{{join .Lines "\n"}}

💰 *Total: {{.Total}}*

Un asesor te contactará en breve para coordinar el pago y la entrega.

¿Hay algo más en lo que pueda ayudarte?{{end}}

{{define "web_order_known_city"}}¡Hola! Recibí tu pedido web:

{{join .Lines "\n"}}

💰 *Total: {{.Total}}*

📍 Te atiende nuestra sucursal de *{{.Branch}}*

¿Confirmamos el pedido? Un asesor te contactará para coordinar pago y entrega.{{end}}

{{define "web_order_ask_city"}}¡Hola! Recibí tu pedido web:

{{join .Lines "\n"}}

💰 *Total: {{.Total}}*

¿Desde qué ciudad nos escribís? 📍{{end}}
`

const (
	hoursText   = "*Horarios:*\n\nLunes a Viernes: 9:00 - 17:30\nSábados: 9:00 - 13:00\nDomingos: Cerrado\n\n¿Querés sacar turno?"
	pricesText  = "Para precios de neumáticos, decime la medida (ej: 205/55R16).\n\nPara servicios, escribí \"servicios\" y te muestro la lista con precios."
	generalText = "¡Hola! Soy el asistente de *Neumáticos del Valle*\n\nPuedo ayudarte con:\n• 🔍 Consultar stock y precios de neumáticos\n• 📅 Sacar turno para servicios\n• ℹ️ Info de sucursales y horarios\n\n¿Qué necesitás?"
)

// Help answers a help request on one topic. Unknown topics get the general greeting.
func Help(topic string) string {
	switch topic {
	case TopicServices:
		lines := make([]string, len(appointments.Catalog))
		for i, s := range appointments.Catalog {
			lines[i] = fmt.Sprintf("• *%s* - %s (%d min)", s.Name, appointments.FormatPrice(s.Price), s.DurationMinutes)
		}
		return render("help_services", listView{Lines: lines})
	case TopicBranches:
		lines := make([]string, len(appointments.Provinces))
		for i, p := range appointments.Provinces {
			lines[i] = "📍 " + p.Name
		}
		return render("help_branches", listView{Lines: lines})
	case TopicHours:
		return hoursText
	case TopicPrices:
		return pricesText
	default:
		return generalText
	}
}

// Handoff tells the user a person will take over.
func Handoff() string {
	return "Te paso con un asesor. Te va a responder en breve.\n\nMientras tanto, si querés dejar tu consulta, escribila acá."
}

type webOrderView struct {
	Branch string
	Lines  []string
	Total  string
}

func newWebOrderView(order weborder.Order, branch string) webOrderView {
	lines := make([]string, len(order.Items))
	for i, item := range order.Items {
		lines[i] = "• " + item.Label()
	}
	return webOrderView{Branch: branch, Lines: lines, Total: order.TotalLabel()}
}

// WebOrderForBranch acknowledges a cart order that named its branch.
func WebOrderForBranch(order weborder.Order) string {
	return render("web_order_branch", newWebOrderView(order, order.BranchName))
}

// WebOrderKnownCity acknowledges a cart order routed to the user's known branch.
func WebOrderKnownCity(order weborder.Order, branchName string) string {
	return render("web_order_known_city", newWebOrderView(order, branchName))
}

// WebOrderAskCity acknowledges a cart order and asks where the user is.
func WebOrderAskCity(order weborder.Order) string {
	return render("web_order_ask_city", newWebOrderView(order, ""))
}

// AppointmentCancelled answers a declined confirmation.
func AppointmentCancelled() string {
	return "Turno cancelado. Si necesitás algo más, escribime."
}

// NoPendingAppointment answers a confirmation with nothing to confirm.
func NoPendingAppointment() string {
	return "No hay un turno pendiente para confirmar. ¿Querés sacar uno nuevo?"
}

// OperationCancelled answers a cancel outside the booking steps.
func OperationCancelled() string {
	return "Listo, cancelado. ¿En qué más te puedo ayudar?"
}

// NothingToGoBack answers "volver" with no draft.
func NothingToGoBack() string {
	return "No hay nada para volver atrás. ¿En qué te puedo ayudar?"
}

// NotUnderstood answers a tool call the engine does not know.
func NotUnderstood() string {
	return "No entendí qué necesitás. ¿Podés explicarme de otra forma?"
}

// EmptyReply replaces an empty plain-text answer from the assistant.
func EmptyReply() string {
	return "Disculpá, no entendí. ¿Podés repetir?"
}

// AssistantError is the reply when the assistant cannot be reached.
func AssistantError() string {
	return "Hubo un error procesando tu mensaje. ¿Podés intentar de nuevo?"
}

// TechnicalError is the reply when a turn fails unexpectedly.
func TechnicalError() string {
	return "¡Hola! Hubo un problema técnico. ¿Podés repetir tu consulta?"
}
