// Package equivalence finds tire sizes with a near-identical overall diameter.
package equivalence

import (
	"math"

	"github.com/wolfman30/neumaticos-whatsapp/internal/stock"
)

// DefaultTolerancePercent is the accepted overall diameter deviation.
const DefaultTolerancePercent = 3.0

const mmPerInch = 25.4

// OverallDiameter returns the tire's overall diameter in millimetres, rounded to two
// decimals: the rim plus two sidewalls of width × aspect ratio.
func OverallDiameter(size stock.TireSize) float64 {
	sidewall := float64(size.Width) * float64(size.Profile) / 100
	return round2(sidewall*2 + float64(size.Diameter)*mmPerInch)
}

// Level grades how close an equivalent is. Lower is better.
type Level int

const (
	Perfecta Level = iota
	Excelente
	MuyBuena
	Buena
)

// LevelFor grades an absolute diameter difference in percent:
// up to 0.5 perfecta, up to 1 excelente, up to 2 muy buena, otherwise buena.
func LevelFor(diffPercent float64) Level {
	d := math.Abs(diffPercent)
	switch {
	case d <= 0.5:
		return Perfecta
	case d <= 1.0:
		return Excelente
	case d <= 2.0:
		return MuyBuena
	default:
		return Buena
	}
}

// String is the persisted name of the level.
func (l Level) String() string {
	switch l {
	case Perfecta:
		return "perfecta"
	case Excelente:
		return "excelente"
	case MuyBuena:
		return "muy_buena"
	default:
		return "buena"
	}
}

// Label is the Spanish description of the level.
func (l Level) Label() string {
	switch l {
	case Perfecta:
		return "Equivalencia perfecta"
	case Excelente:
		return "Equivalencia excelente"
	case MuyBuena:
		return "Muy buena equivalencia"
	default:
		return "Buena equivalencia"
	}
}

// Emoji is the marker shown next to the level in WhatsApp messages.
func (l Level) Emoji() string {
	switch l {
	case Perfecta:
		return "✅"
	case Excelente:
		return "👍"
	case MuyBuena:
		return "👌"
	default:
		return "🔄"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
