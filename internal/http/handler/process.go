package handler

import (
	"github.com/gofiber/fiber/v2"

	"journalapi/internal/agent"
	"journalapi/internal/model"
	"journalapi/internal/service"
)

type processRequest struct {
	UserID      string      `json:"user_id"`
	Content     string      `json:"content"`
	RequestType string      `json:"request_type"`
	Temperature *float64    `json:"temperature"`
	RecordDate  *model.Date `json:"record_date"`
	Tags        []string    `json:"tags"`
	S3Key       *string     `json:"s3_key"`
}

func (r processRequest) input() service.ProcessRequest {
	return service.ProcessRequest{
		UserID:      r.UserID,
		Content:     r.Content,
		RequestType: agent.ParseRequestType(r.RequestType),
		Temperature: r.Temperature,
		RecordDate:  r.RecordDate,
		Tags:        r.Tags,
		S3Key:       r.S3Key,
	}
}

type processFunc func(c *fiber.Ctx, req service.ProcessRequest) (*service.ProcessResult, error)

func process(run processFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req processRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
		res, err := run(c, req.input())
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}

// AgentProcess classifies the input through the orchestrator and stores a message,
// stores a diary or only answers.
//
//	@Summary	Route an input through the agent
//	@Tags		agent
//	@Accept		json
//	@Produce	json
//	@Router		/agent/process [post]
func AgentProcess(svc service.ProcessService) fiber.Handler {
	return process(func(c *fiber.Ctx, req service.ProcessRequest) (*service.ProcessResult, error) {
		return svc.Agent(c.UserContext(), req)
	})
}

// FlowProcess routes the input through the Bedrock flow.
//
//	@Summary	Route an input through the flow
//	@Tags		flow
//	@Accept		json
//	@Produce	json
//	@Router		/flow/process [post]
func FlowProcess(svc service.ProcessService) fiber.Handler {
	return process(func(c *fiber.Ctx, req service.ProcessRequest) (*service.ProcessResult, error) {
		return svc.Flow(c.UserContext(), req)
	})
}

// AgentTest calls the orchestrator without persisting anything. Parameters come from
// the query string.
//
//	@Summary	Raw orchestrator call
//	@Tags		agent
//	@Param		content			query	string	true	"input"
//	@Param		user_id			query	string	false	"defaults to test-user"
//	@Param		request_type	query	string	false	"summarize, question or data"
//	@Param		temperature		query	number	false	"0..1"
//	@Router		/agent/test [post]
func AgentTest(svc service.ProcessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		temperature, err := queryFloat(c, "temperature")
		if err != nil {
			return badParam(c, err)
		}
		res, err := svc.TestAgent(c.UserContext(), service.ProcessRequest{
			UserID:      c.Query("user_id", "test-user"),
			Content:     c.Query("content"),
			RequestType: agent.ParseRequestType(c.Query("request_type")),
			Temperature: temperature,
		})
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}

// FlowTest calls the flow with ?content= and echoes the raw result.
//
//	@Summary	Raw flow call
//	@Tags		flow
//	@Param		content	query	string	true	"input"
//	@Router		/flow/test [post]
func FlowTest(svc service.ProcessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.TestFlow(c.UserContext(), c.Query("content"))
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}
