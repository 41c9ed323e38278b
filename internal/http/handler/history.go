package handler

import (
	"github.com/gofiber/fiber/v2"

	"journalapi/internal/model"
	"journalapi/internal/service"
)

type historyRequest struct {
	UserID     string     `json:"user_id"`
	Content    string     `json:"content"`
	RecordDate model.Date `json:"record_date"`
	Tags       []string   `json:"tags"`
	S3Key      *string    `json:"s3_key"`
}

func (r historyRequest) input() service.SaveHistoryInput {
	return service.SaveHistoryInput{
		UserID:  r.UserID,
		Content: r.Content,
		Date:    r.RecordDate,
		Tags:    r.Tags,
		S3Key:   r.S3Key,
	}
}

// SaveHistory creates or overwrites the diary of (user_id, record_date).
//
//	@Summary	Save the diary of one day
//	@Tags		history
//	@Accept		json
//	@Produce	json
//	@Router		/history [post]
func SaveHistory(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req historyRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		h, err := svc.SaveForDate(c.UserContext(), req.input())
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(h)
	}
}

// ListHistory filters diaries by user, date range and tags.
//
//	@Summary	List diaries
//	@Tags		history
//	@Produce	json
//	@Param		user_id		query	string	false	"user id"
//	@Param		start_date	query	string	false	"YYYY-MM-DD, inclusive"
//	@Param		end_date	query	string	false	"YYYY-MM-DD, inclusive"
//	@Param		tags		query	string	false	"comma separated, any match"
//	@Router		/history [get]
func ListHistory(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := page(c)
		if err != nil {
			return badParam(c, err)
		}
		start, err := queryDate(c, "start_date")
		if err != nil {
			return badParam(c, err)
		}
		end, err := queryDate(c, "end_date")
		if err != nil {
			return badParam(c, err)
		}
		userID := c.Query("user_id")
		if userID == "" {
			userID = c.Query("username")
		}

		res, err := svc.List(c.UserContext(), service.HistoryQuery{
			UserID:    userID,
			StartDate: start,
			EndDate:   end,
			Tags:      splitTags(c.Query("tags")),
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return handleError(c, err)
		}
		if res.Items == nil {
			res.Items = []model.History{}
		}
		return c.JSON(res)
	}
}

func GetHistory(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := historyID(c)
		if err != nil {
			return badParam(c, err)
		}
		h, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(h)
	}
}

// UpdateHistory replaces a diary and rewrites its text file.
//
//	@Summary	Edit a diary
//	@Tags		history
//	@Accept		json
//	@Produce	json
//	@Failure	409	{object}	errorPayload
//	@Router		/history/{id} [put]
func UpdateHistory(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := historyID(c)
		if err != nil {
			return badParam(c, err)
		}
		var req historyRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		h, err := svc.Update(c.UserContext(), id, req.input())
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(h)
	}
}

func DeleteHistory(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := historyID(c)
		if err != nil {
			return badParam(c, err)
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return handleError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// HistoryText returns the stored diary text file.
func HistoryText(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := historyID(c)
		if err != nil {
			return badParam(c, err)
		}
		text, err := svc.ReadText(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "text": text})
	}
}

// HistoryImageURL returns a presigned GET URL for the attached image.
func HistoryImageURL(svc service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := historyID(c)
		if err != nil {
			return badParam(c, err)
		}
		url, err := svc.ImageURL(c.UserContext(), id)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "url": url})
	}
}
