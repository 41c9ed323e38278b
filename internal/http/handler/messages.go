package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"journalapi/internal/model"
	"journalapi/internal/service"
)

type createMessageRequest struct {
	UserID    string     `json:"user_id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
}

type updateMessageRequest struct {
	Content string `json:"content"`
}

func messageQuery(c *fiber.Ctx) (service.MessageQuery, error) {
	limit, offset, err := page(c)
	if err != nil {
		return service.MessageQuery{}, err
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return service.MessageQuery{}, err
	}
	return service.MessageQuery{UserID: c.Query("user_id"), Date: date, Limit: limit, Offset: offset}, nil
}

// CreateMessage stores one message.
//
//	@Summary	Create a message
//	@Tags		messages
//	@Accept		json
//	@Produce	json
//	@Router		/messages [post]
func CreateMessage(svc service.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		msg, err := svc.Create(c.UserContext(), service.CreateMessageInput{
			UserID:    req.UserID,
			Content:   req.Content,
			CreatedAt: req.CreatedAt,
		})
		if err != nil {
			return handleError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
}

// ListMessages returns today's messages, or those of ?date=.
//
//	@Summary	List messages of one day
//	@Tags		messages
//	@Produce	json
//	@Param		user_id	query	string	false	"user id"
//	@Param		date	query	string	false	"YYYY-MM-DD, defaults to today"
//	@Param		limit	query	int		false	"max 1000"
//	@Param		offset	query	int		false	"offset"
//	@Router		/messages [get]
func ListMessages(svc service.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := messageQuery(c)
		if err != nil {
			return badParam(c, err)
		}
		msgs, err := svc.List(c.UserContext(), q)
		if err != nil {
			return handleError(c, err)
		}
		if msgs == nil {
			msgs = []model.Message{}
		}
		return c.JSON(msgs)
	}
}

// MessageContents joins message contents into one line.
//
//	@Summary	Message contents as one comma separated string
//	@Tags		messages
//	@Produce	json
//	@Router		/messages/content [get]
func MessageContents(svc service.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := messageQuery(c)
		if err != nil {
			return badParam(c, err)
		}
		contents, err := svc.Contents(c.UserContext(), q)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(fiber.Map{"contents": contents})
	}
}

func GetMessage(svc service.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		msg, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(msg)
	}
}

func UpdateMessage(svc service.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		msg, err := svc.UpdateContent(c.UserContext(), c.Params("id"), req.Content)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(msg)
	}
}

func DeleteMessage(svc service.MessageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return handleError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
