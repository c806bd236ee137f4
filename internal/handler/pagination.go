package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is the envelope returned by list endpoints when ?page is given.
// Page numbers are zero-based.
type Page[R any] struct {
	Content       []R  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Last          bool `json:"last"`
}

// Paginate slices items to the requested page and maps each element with
// mapFn. Out-of-range pages yield empty content.
func Paginate[T, R any](items []T, page, size int, mapFn func(T) R) Page[R] {
	if size <= 0 {
		size = defaultPageSize
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := min(page*size, total)
	end := min(start+size, total)

	content := make([]R, 0, end-start)
	for _, it := range items[start:end] {
		content = append(content, mapFn(it))
	}
	return Page[R]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    pages,
		Last:          page >= pages-1,
	}
}

// respondList writes items as a plain array, or as a Page when the
// request carries ?page.
func respondList[T, R any](c echo.Context, items []T, mapFn func(T) R) error {
	raw := c.QueryParam("page")
	if raw == "" {
		out := make([]R, 0, len(items))
		for _, it := range items {
			out = append(out, mapFn(it))
		}
		return c.JSON(http.StatusOK, out)
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return badRequest(c, "page must be a non-negative integer")
	}
	size := defaultPageSize
	if s := c.QueryParam("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return badRequest(c, "size must be a positive integer")
		}
		size = min(n, maxPageSize)
	}
	return c.JSON(http.StatusOK, Paginate(items, page, size, mapFn))
}
