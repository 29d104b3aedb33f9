package assistant

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is one function the provider may call.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// ParametersMap returns the parameter schema as plain JSON values.
func (t Tool) ParametersMap() (map[string]any, error) {
	raw, err := json.Marshal(t.Parameters)
	if err != nil {
		return nil, fmt.Errorf("assistant: encode %s schema: %w", t.Name, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("assistant: decode %s schema: %w", t.Name, err)
	}
	return out, nil
}

var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
	ExpandedStruct:            true,
}

func reflectArgs(v any) *jsonschema.Schema {
	s := reflector.Reflect(v)
	s.Version = ""
	s.ID = ""
	return s
}

// DefaultTools returns the tool set in a stable order.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        ToolBookAppointment,
			Description: "Reservar un turno para servicios del taller. Usalo cuando el usuario quiera sacar turno o dé datos de un turno (provincia, sucursal, servicios, fecha, hora o nombre). Pasá solo los datos que el usuario mencionó.",
			Parameters:  reflectArgs(&BookAppointment{}),
		},
		{
			Name:        ToolConfirmAppointment,
			Description: "Confirmar o cancelar el turno pendiente después de mostrar el resumen.",
			Parameters:  reflectArgs(&ConfirmAppointment{}),
		},
		{
			Name:        ToolCheckStock,
			Description: "Consultar stock y precio de neumáticos por medida, por ejemplo 205/55R16.",
			Parameters:  reflectArgs(&CheckStock{}),
		},
		{
			Name:        ToolCancelOperation,
			Description: "Cancelar la operación en curso cuando el usuario ya no quiere seguir.",
			Parameters:  reflectArgs(&CancelOperation{}),
		},
		{
			Name:        ToolGoBack,
			Description: "Volver al paso anterior del turno cuando el usuario quiere cambiar algo.",
			Parameters:  reflectArgs(&GoBack{}),
		},
		{
			Name:        ToolShowHelp,
			Description: "Mostrar información de servicios, sucursales, horarios o precios.",
			Parameters:  reflectArgs(&ShowHelp{}),
		},
		{
			Name:        ToolRequestHuman,
			Description: "Derivar a un asesor humano cuando el usuario lo pide o está frustrado.",
			Parameters:  reflectArgs(&RequestHuman{}),
		},
	}
}
