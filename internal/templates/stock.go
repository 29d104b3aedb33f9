package templates

import (
	"fmt"
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/equivalence"
	"github.com/wolfman30/neumaticos-whatsapp/internal/location"
	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
)

const (
	maxListedProducts    = 5
	maxListedEquivalents = 5
	maxSingleUnitOptions = 3
	maxListedBranches    = 4
)

const stockTemplates = `
{{define "ask_location"}}Para darte info de stock exacta, ¿desde qué ciudad nos escribís? 📍{{end}}

{{define "location_not_recognized"}}No reconocí esa ciudad. ¿Podés decirme de qué ciudad o provincia sos?

Tenemos sucursales en:
{{join .Branches "\n"}}{{end}}

{{define "confirm_branch"}}Perfecto, te muestro disponibilidad en nuestra sucursal de *{{branch .}}*.{{end}}

{{define "available_products"}}En *{{branch .BranchCode}}* tenemos disponibles para {{.Size}}:

{{join .Lines "\n"}}{{if .More}}

_...y {{.More}} opciones más_{{end}}

¿Te interesa alguno? Escribime el que quieras y te doy más detalles.{{end}}

{{define "last_units"}}⚠️ *Últimas unidades* en {{branch .BranchCode}} para {{.Size}}:

{{join .Lines "\n"}}

_Stock limitado, consultá disponibilidad antes de venir._

¿Te interesa alguno?{{end}}

{{define "single_unit_header"}}⚠️ De {{.Product}} solo hay *1 unidad* en {{branch .BranchCode}}.

_Los neumáticos van en pares, con 1 solo no alcanza._{{end}}

{{define "single_unit_warning"}}{{template "single_unit_header" .}}{{if .Equivalents}}

*Alternativas equivalentes:*
{{join .Equivalents "\n"}}{{end}}{{if .OtherBranches}}

*Disponible en otras sucursales:*
{{join .OtherBranches "\n"}}

_Podemos hacer envío entre sucursales._{{end}}

¿Qué preferís?{{end}}

{{define "single_unit_no_alternatives"}}{{template "single_unit_header" .}}

No encontramos medidas equivalentes ni stock en otras sucursales para {{.Size}}.

¿Querés llevar esta unidad igual o preferís que te avisemos cuando ingresen más?{{end}}

{{define "no_stock_with_equivalents"}}La medida *{{.Size}}* no la tenemos en stock en {{branch .BranchCode}}.

Pero tenemos *medidas equivalentes* que te sirven igual:
{{join .Lines "\n\n"}}

_Las equivalencias tienen el mismo diámetro total, funcionan igual._

¿Te interesa alguna?{{end}}

{{define "available_in_other_branch"}}No tenemos *{{.Size}}* en {{branch .BranchCode}}, pero sí en otras sucursales:

{{join .Lines "\n"}}

Podemos hacer *envío entre sucursales* (demora 1-2 días hábiles).

¿Querés que te lo traigamos?{{end}}

{{define "no_stock_anywhere"}}No tenemos la medida *{{.}}* en ninguna de nuestras sucursales.

¿Querés que te avise cuando llegue? Dejame tu número y te contactamos.{{end}}

{{define "confirm_transfer"}}Perfecto, te confirmo el pedido de *{{.Size}}* desde {{branch .From}} a {{branch .To}}.

Un asesor te va a contactar para coordinar el envío.

¿Hay algo más en lo que te pueda ayudar?{{end}}
`

// AskLocation asks which city the user is writing from.
func AskLocation() string {
	return render("ask_location", nil)
}

// LocationNotRecognized re-asks for the city and lists where there are branches.
func LocationNotRecognized(branchNames []string) string {
	return render("location_not_recognized", struct{ Branches []string }{bullets(branchNames)})
}

// ConfirmBranch announces which branch the stock answer is for.
func ConfirmBranch(branchCode string) string {
	return render("confirm_branch", branchCode)
}

type productListView struct {
	BranchCode string
	Size       string
	Lines      []string
	More       int
}

func productTitle(p stock.ProductWithStock) string {
	parts := []string{"*" + p.Brand + "*"}
	if p.Model != "" {
		parts = append(parts, p.Model)
	}
	parts = append(parts, p.SizeDisplay)
	return strings.Join(parts, " ")
}

func productLines(products []stock.ProductWithStock, showStock bool) []string {
	n := min(len(products), maxListedProducts)
	lines := make([]string, 0, n)
	for _, p := range products[:n] {
		line := fmt.Sprintf("• %s - %s", productTitle(p), money(p.Price))
		if showStock && p.BranchStock > 0 {
			line += fmt.Sprintf(" (%d unid.)", p.BranchStock)
		}
		lines = append(lines, line)
	}
	return lines
}

// AvailableProducts lists products with four or more units at the branch.
func AvailableProducts(products []stock.ProductWithStock, branchCode, sizeDisplay string) string {
	return render("available_products", productListView{
		BranchCode: branchCode,
		Size:       sizeDisplay,
		Lines:      productLines(products, false),
		More:       max(len(products)-maxListedProducts, 0),
	})
}

// LastUnitsProducts lists products with two or three units, with their stock.
func LastUnitsProducts(products []stock.ProductWithStock, branchCode, sizeDisplay string) string {
	return render("last_units", productListView{
		BranchCode: branchCode,
		Size:       sizeDisplay,
		Lines:      productLines(products, true),
	})
}

type singleUnitView struct {
	Product       string
	BranchCode    string
	Size          string
	Equivalents   []string
	OtherBranches []string
}

// SingleUnitWarning explains that a lone unit is not enough and offers equivalents
// and other branches. With neither it renders SingleUnitNoAlternatives.
func SingleUnitWarning(product stock.ProductWithStock, branchCode string, equivalents []equivalence.Equivalent, otherBranches []stock.BranchStock) string {
	if len(equivalents) == 0 && len(otherBranches) == 0 {
		return SingleUnitNoAlternatives(product, branchCode)
	}
	view := singleUnitView{Product: productTitle(product), BranchCode: branchCode, Size: product.SizeDisplay}
	for _, eq := range equivalents[:min(len(equivalents), maxSingleUnitOptions)] {
		view.Equivalents = append(view.Equivalents, fmt.Sprintf("%s *%s* %s - %s (%d unid.)",
			eq.Level.Emoji(), eq.Brand, eq.SizeDisplay, money(eq.Price), eq.BranchStock))
	}
	for _, b := range otherBranches[:min(len(otherBranches), maxSingleUnitOptions)] {
		view.OtherBranches = append(view.OtherBranches, fmt.Sprintf("• %s (%d unid.)", branchLabel(b), b.TotalQuantity))
	}
	return render("single_unit_warning", view)
}

// SingleUnitNoAlternatives is the single-unit answer when nothing else can be offered.
func SingleUnitNoAlternatives(product stock.ProductWithStock, branchCode string) string {
	return render("single_unit_no_alternatives", singleUnitView{
		Product:    productTitle(product),
		BranchCode: branchCode,
		Size:       product.SizeDisplay,
	})
}

func signedPercent(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%g%%", v)
	}
	return fmt.Sprintf("%g%%", v)
}

// NoStockWithEquivalents offers equivalent sizes when the requested one is out of stock.
func NoStockWithEquivalents(sizeDisplay, branchCode string, equivalents []equivalence.Equivalent) string {
	n := min(len(equivalents), maxListedEquivalents)
	lines := make([]string, 0, n)
	for _, eq := range equivalents[:n] {
		lines = append(lines, fmt.Sprintf("%s *%s* %s - %s\n   _%s (%s diámetro)_ - %d unid.",
			eq.Level.Emoji(), eq.Brand, eq.SizeDisplay, money(eq.Price),
			eq.Level.Label(), signedPercent(eq.DiameterDiffPercent), eq.BranchStock))
	}
	return render("no_stock_with_equivalents", productListView{BranchCode: branchCode, Size: sizeDisplay, Lines: lines})
}

func branchLabel(b stock.BranchStock) string {
	if name := location.DisplayName(b.BranchCode); name != b.BranchCode || b.BranchName == "" {
		return name
	}
	return b.BranchName
}

// AvailableInOtherBranch lists branches holding the size and offers a transfer.
func AvailableInOtherBranch(sizeDisplay, branchCode string, otherBranches []stock.BranchStock) string {
	n := min(len(otherBranches), maxListedBranches)
	lines := make([]string, 0, n)
	for _, b := range otherBranches[:n] {
		lines = append(lines, fmt.Sprintf("• *%s* - %d unidades", branchLabel(b), b.TotalQuantity))
	}
	return render("available_in_other_branch", productListView{BranchCode: branchCode, Size: sizeDisplay, Lines: lines})
}

// NoStockAnywhere offers to notify the user when the size arrives.
func NoStockAnywhere(sizeDisplay string) string {
	return render("no_stock_anywhere", sizeDisplay)
}

// ConfirmTransfer acknowledges an accepted inter-branch transfer. Without a source
// branch the generic acknowledgement is used.
func ConfirmTransfer(sizeDisplay, fromBranch, toBranch string) string {
	if fromBranch == "" || toBranch == "" || sizeDisplay == "" {
		return TransferAccepted()
	}
	return render("confirm_transfer", struct{ Size, From, To string }{sizeDisplay, fromBranch, toBranch})
}

// TransferAccepted acknowledges a transfer without naming the branches.
func TransferAccepted() string {
	return "Perfecto, un asesor te va a contactar para coordinar el envío entre sucursales.\n\n¿Hay algo más en lo que te pueda ayudar?"
}

// TransferDeclined closes the transfer question.
func TransferDeclined() string {
	return "Sin problema. ¿Hay algo más en lo que te pueda ayudar?"
}

// TransferReask repeats the transfer question.
func TransferReask() string {
	return `¿Querés que te lo traigamos desde otra sucursal? Respondé "sí" o "no".`
}

// SizeCorrected notes a width typo that was fixed before searching.
func SizeCorrected(originalWidth int, size string) string {
	return fmt.Sprintf("_Tomé la medida como *%s* (escribiste %d)._", size, originalWidth)
}

// IncompleteSize asks for a full tire size.
func IncompleteSize() string {
	return "Para buscar stock necesito la medida completa del neumático.\n\nPor ejemplo: *205/55R16* o *185/65R15*\n\n¿Cuál es la medida que necesitás?"
}

// StockError is the reply when a stock lookup fails.
func StockError() string {
	return "Hubo un problema buscando el stock. ¿Podés intentar de nuevo en unos minutos?\n\nSi el problema persiste, escribí a un asesor."
}
