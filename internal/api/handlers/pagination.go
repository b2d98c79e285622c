package handlers

import (
	"strconv"

	"foodgram/domain"

	"github.com/gofiber/fiber/v2"
)

// pagination reads page and limit, falling back to defaults on bad input.
func pagination(c *fiber.Ctx, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = domain.DefaultPage
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}
	return page, limit
}
