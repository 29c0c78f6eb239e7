package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medicure/hms-api/internal/middleware"
	"github.com/medicure/hms-api/internal/model"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ActorID returns the authenticated user's id. The auth middleware validated
// the claim, so a parse failure here means the route is misconfigured.
func ActorID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(c.GetString(middleware.ContextUserID))
	return id
}

func ActorRole(c *gin.Context) model.Role {
	return model.Role(c.GetString(middleware.ContextUserRole))
}
