// Package weborder parses the checkout messages the web cart pre-fills for WhatsApp.
package weborder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes a cart checkout from a product inquiry.
type Kind string

const (
	KindPurchase Kind = "COMPRA_WEB"
	KindInquiry  Kind = "CONSULTA_WEB"
)

const (
	purchaseTag = "[BOT:COMPRA_WEB]"
	inquiryTag  = "[BOT:CONSULTA_WEB]"
)

// Item is one cart line.
type Item struct {
	SKU       string
	Name      string
	Size      string
	Quantity  int
	UnitPrice string
}

// Label renders the item as "2x Pirelli P7 (205/55R16) ($ 150.000 c/u)".
func (i Item) Label() string {
	name := i.Name
	if name == "" {
		name = i.SKU
	}
	out := fmt.Sprintf("%dx %s", i.Quantity, name)
	if i.Size != "" && i.Size != "N/A" {
		out += " (" + i.Size + ")"
	}
	if i.UnitPrice != "" {
		out += " (" + i.UnitPrice + " c/u)"
	}
	return out
}

// Order is a parsed web cart message. Stock was already checked by the cart.
type Order struct {
	Kind       Kind
	Items      []Item
	Total      string
	BranchName string
}

// TotalLabel is the total as shown to the user.
func (o Order) TotalLabel() string {
	if o.Total == "" {
		return "A confirmar"
	}
	return o.Total
}

var (
	branchPattern = regexp.MustCompile(`(?i)^Sucursal:\s*(.+)$`)
	skuPattern    = regexp.MustCompile(`(?i)SKU:\s*([^\s|]+)`)
	sizePattern   = regexp.MustCompile(`(?i)Medida:\s*(.+)`)
	qtyPattern    = regexp.MustCompile(`(?i)Cantidad:\s*(\d+)`)
	pricePattern  = regexp.MustCompile(`\$[\d.,]+`)
	totalPattern  = regexp.MustCompile(`(?i)\*?TOTAL:\s*(\$[\d.,]+)\*?`)
)

// Parse reads a tagged cart message. ok is false for ordinary chat text.
//
// Each item is a "SKU:" line followed by the product name, a "Medida:" line and a
// "Cantidad:" line carrying the unit price.
func Parse(text string) (Order, bool) {
	var order Order
	switch {
	case strings.Contains(text, purchaseTag):
		order.Kind = KindPurchase
	case strings.Contains(text, inquiryTag):
		order.Kind = KindInquiry
	default:
		return Order{}, false
	}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if m := branchPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			order.BranchName = strings.TrimSpace(m[1])
			break
		}
	}

	for i, raw := range lines {
		m := skuPattern.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		item := Item{SKU: strings.TrimSpace(m[1]), Quantity: 1}
		if name := lineAt(lines, i+1); !strings.HasPrefix(name, "#") {
			item.Name = name
		}
		if sm := sizePattern.FindStringSubmatch(lineAt(lines, i+2)); sm != nil {
			item.Size = strings.TrimSpace(sm[1])
		}
		qtyLine := lineAt(lines, i+3)
		if qm := qtyPattern.FindStringSubmatch(qtyLine); qm != nil {
			if n, err := strconv.Atoi(qm[1]); err == nil {
				item.Quantity = n
			}
		}
		item.UnitPrice = pricePattern.FindString(qtyLine)
		order.Items = append(order.Items, item)
	}

	if m := totalPattern.FindStringSubmatch(text); m != nil {
		order.Total = m[1]
	}
	return order, true
}

func lineAt(lines []string, i int) string {
	if i < 0 || i >= len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[i])
}
