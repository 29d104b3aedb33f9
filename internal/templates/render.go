// Package templates renders the Spanish replies sent over WhatsApp.
//
// Every exported function is pure: it maps domain values to message text.
package templates

import (
	"fmt"
	"math"
	"strings"
	"text/template"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/location"
)

// fallbackText replaces a reply whose template failed to execute.
const fallbackText = "Disculpá, tuvimos un problema. ¿Podés repetir tu consulta?"

var funcs = template.FuncMap{
	"join":   strings.Join,
	"branch": location.DisplayName,
}

var replies = mustParse(stockTemplates, appointmentTemplates, assistantTemplates)

func mustParse(sources ...string) *template.Template {
	t := template.New("replies").Option("missingkey=error").Funcs(funcs)
	for _, src := range sources {
		template.Must(t.Parse(src))
	}
	return t
}

// Render executes one named reply template.
func Render(name string, data any) (string, error) {
	var b strings.Builder
	if err := replies.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("templates: render %s: %w", name, err)
	}
	return b.String(), nil
}

func render(name string, data any) string {
	out, err := Render(name, data)
	if err != nil {
		return fallbackText
	}
	return out
}

func money(price float64) string {
	return appointments.FormatAmount(int(math.Round(price)))
}

func bullets(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "• " + item
	}
	return out
}

func numbered(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return out
}
