package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/storylinehq/storyline/internal/apierr"
)

// ErrorResponse is the failure envelope shared by all endpoints.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// IngestLogsResponse acknowledges one persisted event.
type IngestLogsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// ChatQuestionResponse carries a chat answer.
type ChatQuestionResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
}

// QueryUserStoryResponse carries a narrative query answer.
type QueryUserStoryResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// GenerateStoryResponse reports one regenerated narrative.
type GenerateStoryResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	StoryID   string `json:"story_id"`
	StoryText string `json:"story_text"`
}

// errorResponse writes the structured failure envelope with the status and
// stable code carried by the error chain.
func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(apierr.StatusOf(err)).JSON(ErrorResponse{
		Success:   false,
		Error:     apierr.MessageOf(err),
		ErrorCode: string(apierr.CodeOf(err)),
	})
}

// errorCode writes a failure envelope from an explicit code.
func errorCode(c *fiber.Ctx, code apierr.Code, message string) error {
	return errorResponse(c, apierr.New(code, message))
}
