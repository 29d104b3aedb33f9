package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvince(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2", "santiago", true},
		{"Tucumán", "tucuman", true},
		{"tucuman", "tucuman", true},
		{"sgo", "santiago", true},
		{"Santiago", "santiago", true},
		{"soy de catamarca", "catamarca", true},
		{"9", "", false},
		{"mendoza", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseProvince(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestParseBranch(t *testing.T) {
	branches := []Branch{
		{ID: "b-1", Name: "Catamarca Centro"},
		{ID: "b-2", Name: "Catamarca Norte"},
	}
	got, ok := ParseBranch("2", branches)
	require.True(t, ok)
	assert.Equal(t, "b-2", got.ID)

	got, ok = ParseBranch("norte", branches)
	require.True(t, ok)
	assert.Equal(t, "b-2", got.ID)

	_, ok = ParseBranch("3", branches)
	assert.False(t, ok)
}

func TestParseServicesAccumulatesInOrder(t *testing.T) {
	sel := ParseServices("alignment", nil)
	assert.Equal(t, []string{"alignment"}, sel.Services)
	assert.Equal(t, []string{"alignment"}, sel.Added)

	sel = ParseServices("balancing", sel.Services)
	assert.Equal(t, []string{"alignment", "balancing"}, sel.Services)

	sel = ParseServices("Alineación", sel.Services)
	assert.Equal(t, []string{"alignment", "balancing"}, sel.Services)
	assert.Empty(t, sel.Added)

	sel = ParseServices("listo", sel.Services)
	assert.True(t, sel.Complete)
	assert.Equal(t, []string{"alignment", "balancing"}, sel.Services)
}

func TestParseServicesMultiple(t *testing.T) {
	sel := ParseServices("1, 3 y balanceo", nil)
	assert.Equal(t, []string{"inspection", "alignment", "balancing"}, sel.Services)

	sel = ParseServices("de", nil)
	assert.Empty(t, sel.Services)
}

func TestParseDate(t *testing.T) {
	dates := OpenDates(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	d, ok := ParseDate("2", dates)
	require.True(t, ok)
	assert.Equal(t, "2026-03-03", d.Date)

	d, ok = ParseDate("5/3", dates)
	require.True(t, ok)
	assert.Equal(t, "2026-03-05", d.Date)

	d, ok = ParseDate("el viernes", dates)
	require.True(t, ok)
	assert.Equal(t, "2026-03-06", d.Date)

	_, ok = ParseDate("domingo", dates)
	assert.False(t, ok)
}

func TestParseTime(t *testing.T) {
	slots := TimeSlots

	got, ok := ParseTime("3", slots)
	require.True(t, ok)
	assert.Equal(t, "10:00", got)

	got, ok = ParseTime("10:30", slots)
	require.True(t, ok)
	assert.Equal(t, "10:30", got)

	got, ok = ParseTime("10:45", slots)
	require.True(t, ok)
	assert.Equal(t, "10:30", got)

	_, ok = ParseTime("20:00", slots)
	assert.False(t, ok)
}

func TestParseNaturalDate(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		input string
		want  string
	}{
		{"hoy", "2026-03-04"},
		{"mañana", "2026-03-05"},
		{"pasado mañana", "2026-03-06"},
		{"miércoles", "2026-03-11"},
		{"el lunes", "2026-03-09"},
		{"2026-04-01", "2026-04-01"},
		{"20/03", "2026-03-20"},
		{"01/02", "2027-02-01"},
	}
	for _, tt := range tests {
		got, ok := ParseNaturalDate(tt.input, now)
		require.True(t, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, ok := ParseNaturalDate("cuando puedas", now)
	assert.False(t, ok)
}

func TestCommands(t *testing.T) {
	assert.True(t, IsGoBack("Atrás"))
	assert.True(t, IsCancel("cancelar"))
	assert.True(t, IsCancel(" NO "))
	assert.True(t, IsConfirm("Sí"))
	assert.True(t, IsConfirm("CONFIRMAR"))
	assert.False(t, IsConfirm("si pero mañana"))
	assert.True(t, DetectIntent("Hola, quiero sacar turno para alineación"))
	assert.False(t, DetectIntent("tenés 205/55R16?"))
}
