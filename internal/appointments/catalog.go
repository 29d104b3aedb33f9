package appointments

import (
	"strconv"
	"strings"
)

// Province is one of the regions where the workshop has branches.
type Province struct {
	ID   string
	Name string
}

// Provinces are offered in this order; numeric answers index into it.
var Provinces = []Province{
	{ID: "catamarca", Name: "Catamarca"},
	{ID: "santiago", Name: "Santiago del Estero"},
	{ID: "salta", Name: "Salta"},
	{ID: "tucuman", Name: "Tucumán"},
}

// ProvinceByID returns the province with the given id.
func ProvinceByID(id string) (Province, bool) {
	for _, p := range Provinces {
		if p.ID == id {
			return p, true
		}
	}
	return Province{}, false
}

// ServiceOption is a bookable workshop service.
type ServiceOption struct {
	ID              string
	Name            string
	Description     string
	Price           int
	DurationMinutes int
}

// Catalog lists the bookable services. Prices are ARS.
var Catalog = []ServiceOption{
	{ID: "inspection", Name: "Revisión", Description: "Revisión general de neumáticos y tren delantero", Price: 0, DurationMinutes: 30},
	{ID: "tire-change", Name: "Cambio de Neumáticos", Description: "Desmontaje y montaje de neumáticos", Price: 40000, DurationMinutes: 60},
	{ID: "alignment", Name: "Alineación", Description: "Alineación computarizada", Price: 35000, DurationMinutes: 45},
	{ID: "balancing", Name: "Balanceo", Description: "Balanceo de las cuatro ruedas", Price: 25000, DurationMinutes: 30},
	{ID: "rotation", Name: "Rotación", Description: "Rotación de neumáticos", Price: 20000, DurationMinutes: 30},
	{ID: "nitrogen", Name: "Inflado con Nitrógeno", Description: "Inflado de las cuatro ruedas con nitrógeno", Price: 15000, DurationMinutes: 20},
	{ID: "front-end", Name: "Tren Delantero", Description: "Revisión y ajuste de tren delantero", Price: 45000, DurationMinutes: 60},
	{ID: "tire-repair", Name: "Reparación de Llantas", Description: "Reparación de pinchaduras y llantas", Price: 18000, DurationMinutes: 40},
}

// CatalogByID returns the catalog entry for id.
func CatalogByID(id string) (ServiceOption, bool) {
	for _, s := range Catalog {
		if s.ID == id {
			return s, true
		}
	}
	return ServiceOption{}, false
}

// TotalPrice sums the catalog prices of ids, ignoring unknown ids.
func TotalPrice(ids []string) int {
	total := 0
	for _, id := range ids {
		if s, ok := CatalogByID(id); ok {
			total += s.Price
		}
	}
	return total
}

// TotalDuration sums the catalog durations of ids in minutes.
func TotalDuration(ids []string) int {
	total := 0
	for _, id := range ids {
		if s, ok := CatalogByID(id); ok {
			total += s.DurationMinutes
		}
	}
	return total
}

// FormatPrice renders a service price the way es-AR does ("$ 35.000"), or GRATIS for zero.
func FormatPrice(price int) string {
	if price == 0 {
		return "GRATIS"
	}
	return FormatAmount(price)
}

// FormatAmount renders an ARS amount with dot thousands separators.
func FormatAmount(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$ " + b.String()
}
