package helpers

import (
	"math"

	"github.com/yigit/assignhub/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1 // pages are 1-based
	MaxPage         = 1_000_000
)

// NormalizePage clamps page and limit to their allowed ranges
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	} else if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// CalculateOffsetLimit calculates the offset and limit for SQL queries based on 1-based page index.
func CalculateOffsetLimit(page, size int) (offset uint64, limit int) {
	page, limit = NormalizePage(page, size)
	offset = uint64(page-1) * uint64(limit)
	return offset, limit
}

// NewPaginationMeta builds the meta block of a paged listing
func NewPaginationMeta(total int64, page, size int) dto.PaginationMeta {
	page, size = NormalizePage(page, size)

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(size)))
	}

	return dto.PaginationMeta{
		Page:       page,
		Limit:      size,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Percent returns round(part/whole*100), or 0 when whole is 0
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
