package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/neumaticos-whatsapp/internal/appointments"
	"github.com/wolfman30/neumaticos-whatsapp/internal/equivalence"
	"github.com/wolfman30/neumaticos-whatsapp/internal/location"
	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
	"github.com/wolfman30/neumaticos-whatsapp/internal/weborder"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
)

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := Render("does_not_exist", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestRenderRejectsWrongData(t *testing.T) {
	if _, err := Render("available_products", map[string]string{"Size": "205/55R16"}); err == nil {
		t.Fatalf("expected error for missing keys")
	}
}

func pirelli(branchStock int) stock.ProductWithStock {
	return stock.ProductWithStock{
		ProductID:   1,
		Brand:       "Pirelli",
		Model:       "P7",
		SizeDisplay: "205/55R16",
		Price:       150000,
		TotalStock:  branchStock,
		BranchStock: branchStock,
		BranchCode:  location.CodeTucuman,
	}
}

func TestAvailableProducts(t *testing.T) {
	products := make([]stock.ProductWithStock, 7)
	for i := range products {
		products[i] = pirelli(6)
	}
	out := AvailableProducts(products, location.CodeTucuman, "205/55R16")

	assert.True(t, strings.HasPrefix(out, "En *Tucumán* tenemos disponibles para 205/55R16:"))
	assert.Equal(t, 5, strings.Count(out, "• *Pirelli* P7 205/55R16 - $ 150.000"))
	assert.Contains(t, out, "_...y 2 opciones más_")
	assert.NotContains(t, out, "unid.")
	assert.NotEqual(t, fallbackText, out)
}

func TestLastUnitsShowStock(t *testing.T) {
	out := LastUnitsProducts([]stock.ProductWithStock{pirelli(3)}, location.CodeSalta, "205/55R16")
	assert.Contains(t, out, "⚠️ *Últimas unidades* en Salta para 205/55R16:")
	assert.Contains(t, out, "• *Pirelli* P7 205/55R16 - $ 150.000 (3 unid.)")
}

func TestSingleUnitVariants(t *testing.T) {
	product := pirelli(1)

	alone := SingleUnitWarning(product, location.CodeTucuman, nil, nil)
	assert.Equal(t, SingleUnitNoAlternatives(product, location.CodeTucuman), alone)
	assert.Contains(t, alone, "solo hay *1 unidad* en Tucumán")
	assert.Contains(t, alone, "No encontramos medidas equivalentes ni stock en otras sucursales")
	assert.NotContains(t, alone, "¿Qué preferís?")

	eqs := []equivalence.Equivalent{{
		Brand: "Fate", SizeDisplay: "195/60R16", Price: 120000, Level: equivalence.Excelente, BranchStock: 4,
	}}
	others := []stock.BranchStock{{BranchCode: location.CodeSalta, TotalQuantity: 8}}
	withBoth := SingleUnitWarning(product, location.CodeTucuman, eqs, others)
	assert.Contains(t, withBoth, "*Alternativas equivalentes:*\n👍 *Fate* 195/60R16 - $ 120.000 (4 unid.)")
	assert.Contains(t, withBoth, "*Disponible en otras sucursales:*\n• Salta (8 unid.)")
	assert.Contains(t, withBoth, "_Podemos hacer envío entre sucursales._")
	assert.True(t, strings.HasSuffix(withBoth, "¿Qué preferís?"))

	onlyBranches := SingleUnitWarning(product, location.CodeTucuman, nil, others)
	assert.NotContains(t, onlyBranches, "Alternativas equivalentes")
	assert.Contains(t, onlyBranches, "Disponible en otras sucursales")
}

func TestNoStockWithEquivalents(t *testing.T) {
	eqs := []equivalence.Equivalent{
		{Brand: "Fate", SizeDisplay: "195/60R16", Price: 120000, Level: equivalence.Perfecta, DiameterDiffPercent: 0.4, BranchStock: 4},
		{Brand: "Firestone", SizeDisplay: "215/50R16", Price: 99999.6, Level: equivalence.Buena, DiameterDiffPercent: -2.5, BranchStock: 2},
	}
	out := NoStockWithEquivalents("205/55R16", location.CodeCatamarca, eqs)
	assert.Contains(t, out, "La medida *205/55R16* no la tenemos en stock en Catamarca.")
	assert.Contains(t, out, "✅ *Fate* 195/60R16 - $ 120.000\n   _Equivalencia perfecta (+0.4% diámetro)_ - 4 unid.")
	assert.Contains(t, out, "*Firestone* 215/50R16 - $ 100.000\n   _Buena equivalencia (-2.5% diámetro)_ - 2 unid.")
}

func TestAvailableInOtherBranch(t *testing.T) {
	others := []stock.BranchStock{
		{BranchCode: location.CodeSalta, TotalQuantity: 8},
		{BranchCode: "NORTE", BranchName: "Sucursal Norte", TotalQuantity: 2},
	}
	out := AvailableInOtherBranch("205/55R16", location.CodeTucuman, others)
	assert.Contains(t, out, "No tenemos *205/55R16* en Tucumán, pero sí en otras sucursales:")
	assert.Contains(t, out, "• *Salta* - 8 unidades")
	assert.Contains(t, out, "• *Sucursal Norte* - 2 unidades")
	assert.True(t, strings.HasSuffix(out, "¿Querés que te lo traigamos?"))
}

func TestLocationTemplates(t *testing.T) {
	out := LocationNotRecognized([]string{"Salta", "Tucumán"})
	assert.True(t, strings.HasSuffix(out, "Tenemos sucursales en:\n• Salta\n• Tucumán"))
	assert.Equal(t, "Perfecto, te muestro disponibilidad en nuestra sucursal de *La Banda*.", ConfirmBranch(location.CodeLaBanda))
	assert.Contains(t, NoStockAnywhere("175/70R13"), "*175/70R13* en ninguna")
}

func TestConfirmTransfer(t *testing.T) {
	assert.Contains(t, ConfirmTransfer("205/55R16", location.CodeSalta, location.CodeTucuman), "desde Salta a Tucumán")
	assert.Equal(t, TransferAccepted(), ConfirmTransfer("205/55R16", "", location.CodeTucuman))
}

func TestAppointmentMenus(t *testing.T) {
	welcome := WelcomeAndProvinces(appointments.Provinces)
	assert.Contains(t, welcome, "1. Catamarca\n2. Santiago del Estero\n3. Salta\n4. Tucumán")

	assert.Contains(t, ProvinceNotRecognized(appointments.Provinces), "_Escribí el número (1-4) o el nombre_")

	branches := []appointments.Branch{{Name: "Centro", Address: "Av. Belgrano 100"}, {Name: "Norte", Address: "Ruta 9 km 3"}}
	assert.Contains(t, BranchSelection("Catamarca", branches), "1. *Centro*\n   📍 Av. Belgrano 100\n\n2. *Norte*")
	assert.Contains(t, BranchSelection("Salta", nil), "No tenemos sucursales activas en Salta")

	assert.Contains(t, ServiceSelection(appointments.Catalog), "3. *Alineación* - $ 35.000\n   _45 min_")
	assert.Contains(t, ServiceSelection(appointments.Catalog), "1. *Revisión* - GRATIS")

	added := ServiceAdded([]string{"balancing"}, []string{"alignment", "balancing"})
	assert.True(t, strings.HasPrefix(added, "Agregado: *Balanceo*"))
	assert.Contains(t, added, "• Alineación\n• Balanceo")
}

func TestTimeSelectionRows(t *testing.T) {
	out := TimeSelection("Lunes 09/03", []string{"09:00", "09:30", "10:00", "10:30", "11:00"})
	assert.Contains(t, out, "*Horarios disponibles - Lunes 09/03:*")
	assert.Contains(t, out, "1. 09:00  |  2. 09:30  |  3. 10:00  |  4. 10:30\n5. 11:00")

	assert.Contains(t, TimeSelection("Sábado 14/03", nil), "No hay horarios disponibles para el Sábado 14/03.")

	retry := TimeNotRecognized(appointments.TimeSlots)
	assert.Contains(t, retry, "1. 09:00  |  2. 09:30")
	assert.Contains(t, retry, "_...y 12 más_")
}

func TestConfirmationSummary(t *testing.T) {
	draft := whatsapp.PendingAppointment{
		BranchName:       "Catamarca Centro",
		SelectedServices: []string{"alignment", "balancing"},
		PreferredDate:    "2026-03-09",
		PreferredTime:    "10:30",
		CustomerName:     "Ana Pérez",
	}
	out := ConfirmationSummary(draft)
	assert.Contains(t, out, "📍 Sucursal: *Catamarca Centro*")
	assert.Contains(t, out, "📅 Fecha: *09/03/2026*")
	assert.Contains(t, out, "• Alineación - $ 35.000\n• Balanceo - $ 25.000")
	assert.Contains(t, out, "💰 *Total estimado: $ 60.000*")

	success := AppointmentSuccess("Catamarca Centro", "2026-03-09", "10:30")
	assert.Contains(t, success, "Fecha: *09/03/2026*")

	assert.Contains(t, AppointmentError("El horario ya no está disponible"), "_El horario ya no está disponible_")
}

func TestHelpTopics(t *testing.T) {
	assert.Contains(t, Help(TopicServices), "• *Balanceo* - $ 25.000 (30 min)")
	assert.Contains(t, Help(TopicBranches), "📍 Santiago del Estero")
	assert.Contains(t, Help(TopicHours), "Sábados: 9:00 - 13:00")
	assert.Contains(t, Help(TopicPrices), "205/55R16")
	assert.Equal(t, Help(TopicGeneral), Help("anything"))
}

func TestWebOrderReplies(t *testing.T) {
	order := weborder.Order{
		Kind:       weborder.KindPurchase,
		Items:      []weborder.Item{{SKU: "A1", Name: "Pirelli P7", Size: "205/55R16", Quantity: 4, UnitPrice: "$150.000"}},
		Total:      "$600.000",
		BranchName: "Salta Centro",
	}
	out := WebOrderForBranch(order)
	require.NotEqual(t, fallbackText, out)
	assert.Contains(t, out, "Recibí tu pedido para *Salta Centro*")
	assert.Contains(t, out, "• 4x Pirelli P7 (205/55R16) ($150.000 c/u)")
	assert.Contains(t, out, "💰 *Total: $600.000*")

	assert.Contains(t, WebOrderKnownCity(order, "Tucumán"), "Te atiende nuestra sucursal de *Tucumán*")

	order.Total = ""
	ask := WebOrderAskCity(order)
	assert.Contains(t, ask, "*Total: A confirmar*")
	assert.True(t, strings.HasSuffix(ask, "¿Desde qué ciudad nos escribís? 📍"))
}
