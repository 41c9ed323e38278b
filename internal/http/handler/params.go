package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"journalapi/internal/model"
)

type paramError struct {
	code    string
	message string
}

func (e *paramError) Error() string { return e.message }

func badParam(c *fiber.Ctx, err error) error {
	if pe, ok := err.(*paramError); ok {
		return writeError(c, fiber.StatusBadRequest, pe.code, pe.message)
	}
	return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "bad request")
}

// page reads limit and offset. Range clamping is left to the services.
func page(c *fiber.Ctx) (int, int, error) {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil {
		return 0, 0, &paramError{"INVALID_LIMIT", "invalid limit"}
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, &paramError{"INVALID_OFFSET", "invalid offset"}
	}
	return limit, offset, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *fiber.Ctx, key string) (*model.Date, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, &paramError{"INVALID_DATE", "invalid " + key + ", expected YYYY-MM-DD"}
	}
	return &d, nil
}

// queryFloat parses an optional float query parameter.
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &paramError{"INVALID_" + strings.ToUpper(key), "invalid " + key}
	}
	return &f, nil
}

func historyID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &paramError{"INVALID_ID", "invalid id format"}
	}
	return id, nil
}

// splitTags turns "a, b,,c" into [a b c].
func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
}
