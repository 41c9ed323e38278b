package handler

import (
	"github.com/gofiber/fiber/v2"

	"journalapi/internal/model"
	"journalapi/internal/service"
)

type summaryRequest struct {
	UserID     string      `json:"user_id"`
	RecordDate *model.Date `json:"record_date"`
}

// CreateSummary turns a user's messages into diary prose. Without record_date every
// message of the user is used.
//
//	@Summary	Summarize messages
//	@Tags		summary
//	@Accept		json
//	@Produce	json
//	@Failure	404	{object}	errorPayload	"NO_MESSAGES"
//	@Router		/summary [post]
func CreateSummary(svc service.SummaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req summaryRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		res, err := svc.Summarize(c.UserContext(), req.UserID, req.RecordDate)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}

func GetSummary(svc service.SummaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Summarize(c.UserContext(), c.Params("user_id"), nil)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}

// CheckSummary reports whether today's diary already exists.
func CheckSummary(svc service.SummaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.CheckToday(c.UserContext(), c.Params("user_id"))
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}
