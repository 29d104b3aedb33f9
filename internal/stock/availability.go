package stock

// Availability classifies how many units a branch holds. Tires are sold in pairs,
// so a single unit is not enough on its own.
type Availability string

const (
	Unavailable Availability = "unavailable"
	SingleUnit  Availability = "single_unit"
	LastUnits   Availability = "last_units"
	Available   Availability = "available"
)

// Classify maps a quantity to its availability: 0 unavailable, 1 single unit,
// 2-3 last units, 4 or more available.
func Classify(quantity int) Availability {
	switch {
	case quantity <= 0:
		return Unavailable
	case quantity == 1:
		return SingleUnit
	case quantity <= 3:
		return LastUnits
	default:
		return Available
	}
}

// Groups splits products by their branch availability, keeping input order.
type Groups struct {
	Available   []ProductWithStock
	LastUnits   []ProductWithStock
	SingleUnit  []ProductWithStock
	Unavailable []ProductWithStock
}

// GroupByAvailability classifies each product by its branch stock.
func GroupByAvailability(products []ProductWithStock) Groups {
	var g Groups
	for _, p := range products {
		switch Classify(p.BranchStock) {
		case Available:
			g.Available = append(g.Available, p)
		case LastUnits:
			g.LastUnits = append(g.LastUnits, p)
		case SingleUnit:
			g.SingleUnit = append(g.SingleUnit, p)
		default:
			g.Unavailable = append(g.Unavailable, p)
		}
	}
	return g
}
