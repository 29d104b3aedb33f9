package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCity(t *testing.T) {
	tests := []struct {
		message string
		want    string
		ok      bool
	}{
		{"Tucumán", "tucuman", true},
		{"estoy en San Miguel de Tucumán", "tucuman", true},
		{"soy de la banda", "la banda", true},
		{"vivo en CABA", "caba", true},
		{"Santiago del Estero", "santiago", true},
		{"S.M. de Tucumán", "tucuman", true},
		{"bandana", "", false},
		{"no quiero correr riesgos", "", false},
		{"voy desde sgo", "sgo", true},
		{"mendoza", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got, ok := DetectCity(tt.message)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBranchCodeFromCity(t *testing.T) {
	tests := []struct {
		city string
		want string
		ok   bool
	}{
		{"tucuman", CodeTucuman, true},
		{"Tucumán", CodeTucuman, true},
		{"santiago del estero", CodeSantiago, true},
		{"la banda", CodeLaBanda, true},
		{"capital federal", CodeBelgrano, true},
		{"ciudad de salta", CodeSalta, true},
		{"cata", CodeCatamarca, true},
		{"rosario", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.city, func(t *testing.T) {
			got, ok := BranchCodeFromCity(tt.city)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBranchCodeFromCityFirstMatchWins(t *testing.T) {
	// "san" is contained in both santiago and san miguel de tucuman; table order decides.
	got, ok := BranchCodeFromCity("san")
	assert.True(t, ok)
	assert.Equal(t, CodeSantiago, got)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Santiago del Estero", DisplayName(CodeSantiago))
	assert.Equal(t, "La Banda", DisplayName(CodeLaBanda))
	assert.Equal(t, "UNKNOWN", DisplayName("UNKNOWN"))
}
