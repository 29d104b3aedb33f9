package stock

import (
	"fmt"
	"regexp"
	"strconv"
)

// TireSize is a metric tire size such as 205/55R16.
type TireSize struct {
	Width    int
	Profile  int
	Diameter int
}

// String renders the size as 205/55R16.
func (s TireSize) String() string {
	return fmt.Sprintf("%d/%dR%d", s.Width, s.Profile, s.Diameter)
}

// ParsedSize is a size read from user text.
type ParsedSize struct {
	TireSize
	// WasCorrected is set when a width ending in 6 was read as a typo for 5.
	WasCorrected  bool
	OriginalWidth int
}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{3})\s*[/-]\s*(\d{2})\s*[rR]?\s*(\d{2})`),
	regexp.MustCompile(`(\d{3})\s*(\d{2})\s*[rR]?\s*(\d{2})`),
	regexp.MustCompile(`(\d{3})[-/\s](\d{2})[-/\s]?[rR]?(\d{2})`),
}

const (
	minWidth    = 100
	maxWidth    = 400
	minProfile  = 20
	maxProfile  = 90
	minDiameter = 12
	maxDiameter = 24
)

// ParseTireSize finds a tire size in free text ("busco 205/55R16", "205 55 16").
func ParseTireSize(text string) (ParsedSize, bool) {
	for _, pattern := range sizePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		width, _ := strconv.Atoi(m[1])
		profile, _ := strconv.Atoi(m[2])
		diameter, _ := strconv.Atoi(m[3])
		if parsed, ok := NormalizeSize(width, profile, diameter); ok {
			return parsed, true
		}
	}
	return ParsedSize{}, false
}

// NormalizeSize range-checks a size and applies the width typo fix. Widths are
// sold in steps ending in 5, so a width ending in 6 is corrected down by one.
func NormalizeSize(width, profile, diameter int) (ParsedSize, bool) {
	if width < minWidth || width > maxWidth {
		return ParsedSize{}, false
	}
	if profile < minProfile || profile > maxProfile {
		return ParsedSize{}, false
	}
	if diameter < minDiameter || diameter > maxDiameter {
		return ParsedSize{}, false
	}

	parsed := ParsedSize{TireSize: TireSize{Width: width, Profile: profile, Diameter: diameter}}
	if width%10 == 6 {
		parsed.OriginalWidth = width
		parsed.Width = width - 1
		parsed.WasCorrected = true
	}
	return parsed, true
}
