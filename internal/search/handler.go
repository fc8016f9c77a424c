package search

import (
	"strings"
	"unicode/utf8"

	"github.com/Kyz7/requestdesk/internal/access"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/response"
	"github.com/gofiber/fiber/v2"
)

func SearchHandler(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	kind := c.Query("type", TypeAll)

	errs := map[string]string{}
	if utf8.RuneCountInString(q) < 2 {
		errs["q"] = "q must be at least 2 characters"
	}
	if !ValidType(kind) {
		errs["type"] = "type must be one of all, requests, businesses, clients"
	}
	if len(errs) > 0 {
		return response.ValidationError(c, errs)
	}

	results, err := Run(access.CurrentUser(c), q, kind)
	if err != nil {
		logging.Component("search").WithError(err).WithField("q", q).Error("Search failed")
		return response.InternalError(c, "Search failed")
	}

	return response.Success(c, fiber.Map{
		"results": results,
		"query":   q,
		"type":    kind,
	}, "Search completed successfully")
}
