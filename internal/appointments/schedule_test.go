package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "GRATIS", FormatPrice(0))
	assert.Equal(t, "$ 500", FormatPrice(500))
	assert.Equal(t, "$ 35.000", FormatPrice(35000))
	assert.Equal(t, "$ 1.234.567", FormatPrice(1234567))
	assert.Equal(t, "$ 0", FormatAmount(0))
	assert.Equal(t, "-$ 1.500", FormatAmount(-1500))
}

func TestTimeSlotsCoverWorkingDay(t *testing.T) {
	require.Len(t, TimeSlots, 18)
	assert.Equal(t, "09:00", TimeSlots[0])
	assert.Equal(t, "17:30", TimeSlots[len(TimeSlots)-1])
}

func TestOpenDatesSkipsSundays(t *testing.T) {
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	dates := OpenDates(saturday)

	require.Len(t, dates, 7)
	assert.Equal(t, "2026-03-07", dates[0].Date)
	assert.Equal(t, "Sábado 07/03", dates[0].DayName)
	assert.Equal(t, "2026-03-09", dates[1].Date)
	assert.Equal(t, "2026-03-14", dates[6].Date)
	for _, d := range dates {
		assert.NotEqual(t, time.Sunday, d.DayOfWeek)
	}
}

func TestFilterSlots(t *testing.T) {
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	t.Run("full slots removed", func(t *testing.T) {
		slots := FilterSlots("2026-03-09", map[string]int{"10:00": 2, "10:30": 1}, 30, monday)
		assert.Len(t, slots, 17)
		assert.NotContains(t, slots, "10:00")
		assert.Contains(t, slots, "10:30")
	})

	t.Run("saturday closes at one", func(t *testing.T) {
		slots := FilterSlots("2026-03-07", nil, 30, monday)
		require.NotEmpty(t, slots)
		assert.Equal(t, "13:00", slots[len(slots)-1])
		assert.Len(t, slots, 9)
	})

	t.Run("sunday closed", func(t *testing.T) {
		assert.Empty(t, FilterSlots("2026-03-08", nil, 30, monday))
	})

	t.Run("past slots of today removed", func(t *testing.T) {
		noon := time.Date(2026, 3, 2, 12, 10, 0, 0, time.UTC)
		slots := FilterSlots("2026-03-02", nil, 30, noon)
		assert.Equal(t, "12:30", slots[0])
	})

	t.Run("long jobs must end by closing", func(t *testing.T) {
		slots := FilterSlots("2026-03-09", nil, 75, monday)
		assert.Equal(t, "16:30", slots[len(slots)-1])
	})

	t.Run("bad date returns every slot", func(t *testing.T) {
		assert.Equal(t, TimeSlots, FilterSlots("not-a-date", nil, 30, monday))
	})
}

func TestDayLabels(t *testing.T) {
	assert.Equal(t, "Lunes 09/03", DayLabel("2026-03-09"))
	assert.Equal(t, "Lunes 09/03/2026", LongDate("2026-03-09"))
	assert.Equal(t, "garbage", DayLabel("garbage"))
}
