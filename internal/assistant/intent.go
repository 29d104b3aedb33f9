// Package assistant turns free-text WhatsApp messages into typed intents using a
// chat-completion provider constrained to a fixed tool set. It never touches
// conversation state; the flow engine executes whatever intent comes back.
package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when the provider calls a tool outside the tool set.
var ErrUnknownTool = errors.New("assistant: unknown tool")

// Tool names.
const (
	ToolBookAppointment    = "book_appointment"
	ToolConfirmAppointment = "confirm_appointment"
	ToolCheckStock         = "check_stock"
	ToolCancelOperation    = "cancel_operation"
	ToolGoBack             = "go_back"
	ToolShowHelp           = "show_help"
	ToolRequestHuman       = "request_human"
)

// Intent is the closed set of classifier results.
type Intent interface {
	// Name is the tool name, or "reply" for plain text.
	Name() string
	isIntent()
}

// BookAppointment carries whatever booking details the user already gave.
type BookAppointment struct {
	Province      string   `json:"province,omitempty" jsonschema:"enum=catamarca,enum=santiago,enum=salta,enum=tucuman" jsonschema_description:"Provincia donde quiere el turno"`
	BranchName    string   `json:"branch_name,omitempty" jsonschema_description:"Nombre de la sucursal si el usuario la menciona"`
	Services      []string `json:"services,omitempty" jsonschema:"enum=inspection,enum=tire-change,enum=alignment,enum=balancing,enum=rotation,enum=nitrogen,enum=front-end,enum=tire-repair" jsonschema_description:"Servicios pedidos: revisión→inspection; cambio de cubiertas→tire-change; alineación→alignment; balanceo→balancing; rotación→rotation; nitrógeno→nitrogen; tren delantero→front-end; parche o reparación→tire-repair"`
	PreferredDate string   `json:"preferred_date,omitempty" jsonschema_description:"Fecha YYYY-MM-DD, día de la semana, hoy, mañana o pasado mañana"`
	PreferredTime string   `json:"preferred_time,omitempty" jsonschema_description:"Hora HH:MM, por ejemplo 10:00 o 14:30"`
	CustomerName  string   `json:"customer_name,omitempty" jsonschema_description:"Nombre completo del cliente"`
}

// ConfirmAppointment answers the booking summary.
type ConfirmAppointment struct {
	Confirmed bool `json:"confirmed" jsonschema_description:"true si el usuario confirma, false si cancela"`
}

// CheckStock is a tire stock and price question.
type CheckStock struct {
	Width    int    `json:"width" jsonschema_description:"Ancho del neumático, por ejemplo 205. Si termina en 6 corregir a 5"`
	Profile  int    `json:"profile" jsonschema_description:"Perfil del neumático, por ejemplo 55"`
	Diameter int    `json:"diameter" jsonschema_description:"Diámetro de la llanta en pulgadas, por ejemplo 16"`
	Brand    string `json:"brand,omitempty" jsonschema_description:"Marca si el usuario la menciona"`
	City     string `json:"city,omitempty" jsonschema_description:"Ciudad del usuario para mostrar el stock de la sucursal cercana"`
}

// CancelOperation abandons the current booking or search.
type CancelOperation struct {
	Reason string `json:"reason,omitempty" jsonschema_description:"Motivo de la cancelación si lo menciona"`
}

// GoBack undoes the last answered booking step.
type GoBack struct{}

// ShowHelp asks for information about the business.
type ShowHelp struct {
	Topic string `json:"topic,omitempty" jsonschema:"enum=services,enum=branches,enum=hours,enum=prices,enum=general" jsonschema_description:"Tema de ayuda"`
}

// RequestHuman asks for a person.
type RequestHuman struct {
	Reason string `json:"reason,omitempty" jsonschema_description:"Motivo por el que pide un asesor"`
}

// Reply is a plain-text answer with no tool call.
type Reply struct {
	Text string
}

func (BookAppointment) Name() string    { return ToolBookAppointment }
func (ConfirmAppointment) Name() string { return ToolConfirmAppointment }
func (CheckStock) Name() string         { return ToolCheckStock }
func (CancelOperation) Name() string    { return ToolCancelOperation }
func (GoBack) Name() string             { return ToolGoBack }
func (ShowHelp) Name() string           { return ToolShowHelp }
func (RequestHuman) Name() string       { return ToolRequestHuman }
func (Reply) Name() string              { return "reply" }

func (BookAppointment) isIntent()    {}
func (ConfirmAppointment) isIntent() {}
func (CheckStock) isIntent()         {}
func (CancelOperation) isIntent()    {}
func (GoBack) isIntent()             {}
func (ShowHelp) isIntent()           {}
func (RequestHuman) isIntent()       {}
func (Reply) isIntent()              {}

// HasSize reports whether all three size components were extracted.
func (c CheckStock) HasSize() bool {
	return c.Width > 0 && c.Profile > 0 && c.Diameter > 0
}

// Decode builds the intent for a tool call. Empty arguments decode to zero values.
func Decode(name string, args []byte) (Intent, error) {
	switch name {
	case ToolBookAppointment:
		return decodeInto[BookAppointment](name, args)
	case ToolConfirmAppointment:
		return decodeInto[ConfirmAppointment](name, args)
	case ToolCheckStock:
		return decodeInto[CheckStock](name, args)
	case ToolCancelOperation:
		return decodeInto[CancelOperation](name, args)
	case ToolGoBack:
		return GoBack{}, nil
	case ToolShowHelp:
		return decodeInto[ShowHelp](name, args)
	case ToolRequestHuman:
		return decodeInto[RequestHuman](name, args)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

func decodeInto[T Intent](name string, args []byte) (Intent, error) {
	var v T
	if len(args) == 0 || string(args) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return nil, fmt.Errorf("assistant: decode %s arguments: %w", name, err)
	}
	return v, nil
}

// DecodeMap is Decode for providers that hand back already-parsed arguments.
func DecodeMap(name string, args map[string]any) (Intent, error) {
	if len(args) == 0 {
		return Decode(name, nil)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("assistant: encode %s arguments: %w", name, err)
	}
	return Decode(name, raw)
}
