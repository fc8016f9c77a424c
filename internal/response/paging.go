package response

import "github.com/gofiber/fiber/v2"

type Meta struct {
	Page       int   `json:"page,omitempty"`
	Limit      int   `json:"limit,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int64 `json:"total_pages,omitempty"`
}

func CalculateMeta(page, limit int, total int64) *Meta {
	if limit <= 0 {
		limit = 1
	}
	pages := (total + int64(limit) - 1) / int64(limit)
	return &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}

// Paging reads page and limit (or per_page), clamping limit to max.
func Paging(c *fiber.Ctx, defaultLimit, max int) (page, limit, offset int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", c.QueryInt("per_page", defaultLimit))
	switch {
	case limit < 1:
		limit = defaultLimit
	case limit > max:
		limit = max
	}
	return page, limit, (page - 1) * limit
}
