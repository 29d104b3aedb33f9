package location

import (
	"strings"

	"github.com/wolfman30/neumaticos-whatsapp/internal/textnorm"
)

// Branch codes.
const (
	CodeSantiago  = "SANTIAGO"
	CodeLaBanda   = "LA_BANDA"
	CodeTucuman   = "TUCUMAN"
	CodeSalta     = "SALTA"
	CodeCatamarca = "CATAMARCA"
	CodeBelgrano  = "BELGRANO"
	CodeVirgen    = "VIRGEN"
)

type alias struct {
	key  string
	code string
}

// cityAliases is ordered; the first match wins.
var cityAliases = []alias{
	{"santiago", CodeSantiago},
	{"santiago del estero", CodeSantiago},
	{"sgo del estero", CodeSantiago},
	{"sgo", CodeSantiago},
	{"stgo", CodeSantiago},

	{"la banda", CodeLaBanda},
	{"labanda", CodeLaBanda},
	{"banda", CodeLaBanda},

	{"tucuman", CodeTucuman},
	{"san miguel de tucuman", CodeTucuman},
	{"smt", CodeTucuman},
	{"s.m. de tucuman", CodeTucuman},

	{"salta", CodeSalta},
	{"salta capital", CodeSalta},

	{"catamarca", CodeCatamarca},
	{"san fernando del valle de catamarca", CodeCatamarca},
	{"s.f.v. catamarca", CodeCatamarca},

	{"belgrano", CodeBelgrano},
	{"buenos aires", CodeBelgrano},
	{"caba", CodeBelgrano},
	{"capital federal", CodeBelgrano},

	{"virgen", CodeVirgen},
	{"la virgen", CodeVirgen},
}

// provinceAliases maps a province to its default branch.
var provinceAliases = []alias{
	{"santiago del estero", CodeSantiago},
	{"tucuman", CodeTucuman},
	{"salta", CodeSalta},
	{"catamarca", CodeCatamarca},
	{"buenos aires", CodeBelgrano},
	{"caba", CodeBelgrano},
}

var displayNames = map[string]string{
	CodeSantiago:  "Santiago del Estero",
	CodeLaBanda:   "La Banda",
	CodeTucuman:   "Tucumán",
	CodeSalta:     "Salta",
	CodeCatamarca: "Catamarca",
	CodeBelgrano:  "Belgrano",
	CodeVirgen:    "Virgen",
}

// DisplayOrder is the order branches are listed to users.
var DisplayOrder = []string{CodeSantiago, CodeLaBanda, CodeTucuman, CodeSalta, CodeCatamarca, CodeBelgrano, CodeVirgen}

// DisplayName returns the user-facing name of a branch code, or the code itself.
func DisplayName(code string) string {
	if name, ok := displayNames[code]; ok {
		return name
	}
	return code
}

// DetectCity finds a known city or province mentioned in a message and returns its
// folded key. Keys are matched as whole words in table order.
func DetectCity(message string) (string, bool) {
	normalized := textnorm.Fold(message)
	if normalized == "" {
		return "", false
	}
	for _, a := range cityAliases {
		if normalized == a.key || textnorm.HasWord(normalized, a.key) {
			return a.key, true
		}
	}
	for _, a := range provinceAliases {
		if textnorm.HasWord(normalized, a.key) {
			return a.key, true
		}
	}
	return "", false
}

// BranchCodeFromCity resolves a city to a branch code: exact city key, then exact
// province key, then the first city key contained in the input or containing it.
func BranchCodeFromCity(city string) (string, bool) {
	normalized := textnorm.Fold(city)
	if normalized == "" {
		return "", false
	}
	for _, a := range cityAliases {
		if a.key == normalized {
			return a.code, true
		}
	}
	for _, a := range provinceAliases {
		if a.key == normalized {
			return a.code, true
		}
	}
	for _, a := range cityAliases {
		if strings.Contains(normalized, a.key) || strings.Contains(a.key, normalized) {
			return a.code, true
		}
	}
	return "", false
}
