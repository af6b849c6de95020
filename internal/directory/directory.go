// Package directory реализует фильтрацию и постраничную выдачу купонов.
//
// Пакет чистый: для одного и того же списка и критериев результат всегда
// одинаков. Порядок входного списка сохраняется — сортировку задаёт
// хранилище (по убыванию даты создания), здесь она не меняется.
package directory

import (
	"strings"

	"github.com/mmeshcher/couponboard/internal/model"
)

// CountryAll — признак выбора «все страны», отключающий фильтр по стране.
// Пустое значение любого селектора тоже означает отсутствие фильтра.
const CountryAll = "all"

// DefaultPageSize — размер страницы по умолчанию.
const DefaultPageSize = 9

// Criteria описывает параметры отбора и страницу выдачи.
type Criteria struct {
	Search   string
	Category string
	Country  string
	Brand    string
	Page     int
	PageSize int
}

// NewCriteria возвращает критерии с первой страницей и размером по умолчанию.
func NewCriteria() Criteria {
	return Criteria{Page: 1, PageSize: DefaultPageSize}
}

// SetPageSize меняет размер страницы и сбрасывает текущую страницу на первую,
// чтобы не оказаться за границей выдачи.
func (c *Criteria) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	c.PageSize = size
	c.Page = 1
}

// SetPage устанавливает номер страницы. Значения меньше единицы приводятся к ней.
func (c *Criteria) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.Page = page
}

// Result — страница отфильтрованного списка. Пустая страница — корректное
// отображаемое состояние, а не ошибка.
type Result struct {
	Coupons    []model.Coupon `json:"coupons"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// Apply отбирает из списка купоны по критериям и возвращает запрошенную страницу.
func Apply(coupons []model.Coupon, c Criteria) Result {
	if c.Page < 1 {
		c.Page = 1
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}

	filtered := make([]model.Coupon, 0, len(coupons))
	for _, coupon := range coupons {
		if !matches(coupon, c) {
			continue
		}
		filtered = append(filtered, coupon)
	}

	total := len(filtered)
	totalPages := (total + c.PageSize - 1) / c.PageSize

	start := (c.Page - 1) * c.PageSize
	end := start + c.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Result{
		Coupons:    filtered[start:end],
		Total:      total,
		Page:       c.Page,
		PageSize:   c.PageSize,
		TotalPages: totalPages,
	}
}

// matches проверяет купон на соответствие всем критериям сразу.
func matches(coupon model.Coupon, c Criteria) bool {
	if !coupon.Approved {
		return false
	}

	if term := strings.ToLower(strings.TrimSpace(c.Search)); term != "" {
		// Совпадение требуется по каждому текстовому полю одновременно.
		// Отсутствующее описание считается совпавшим.
		if !strings.Contains(strings.ToLower(coupon.Title), term) {
			return false
		}
		if !strings.Contains(strings.ToLower(coupon.Code), term) {
			return false
		}
		if coupon.Description != "" && !strings.Contains(strings.ToLower(coupon.Description), term) {
			return false
		}
	}

	if c.Category != "" && coupon.Category != c.Category {
		return false
	}
	if c.Country != "" && c.Country != CountryAll && coupon.Country != c.Country {
		return false
	}
	if c.Brand != "" && coupon.Brand != c.Brand {
		return false
	}

	return true
}
