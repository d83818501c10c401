package helpers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		wantPage    int
		wantLimit   int
		wantOffset  uint64
	}{
		{"defaults", 0, 0, 1, 10, 0},
		{"negative page", -3, 20, 1, 20, 0},
		{"limit capped", 2, 500, 2, 100, 100},
		{"third page", 3, 10, 3, 10, 20},
		{"huge page clamped", math.MaxInt, 100, MaxPage, 100, uint64(MaxPage-1) * 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := NormalizePage(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)

			offset, _ := CalculateOffsetLimit(tt.page, tt.limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestNewPaginationMeta(t *testing.T) {
	meta := NewPaginationMeta(21, 1, 10)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, int64(21), meta.Total)

	assert.Equal(t, 0, NewPaginationMeta(0, 1, 10).TotalPages)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(4, 4))
}

func TestTextHelpers(t *testing.T) {
	blank := "   "
	padded := "  note  "

	assert.Nil(t, TrimPtr(nil))
	assert.Equal(t, "note", *TrimPtr(&padded))
	assert.Nil(t, NilIfBlank(&blank))
	assert.Equal(t, "note", *NilIfBlank(&padded))
	assert.Equal(t, "", Deref(nil))
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%alice%", ContainsPattern("alice"))
	assert.Equal(t, `%100\%%`, ContainsPattern("100%"))
	assert.Equal(t, `%a\_b%`, ContainsPattern("a_b"))
	assert.Equal(t, `%c:\\tmp%`, ContainsPattern(`c:\tmp`))
}

func TestDurationAndDate(t *testing.T) {
	assert.Equal(t, 2*time.Hour, ParseDuration("2h", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))

	d := time.Date(2030, 1, 5, 23, 0, 0, 0, time.FixedZone("X", -5*3600))
	assert.Equal(t, "1/6/2030", FormatDate(d))
}
