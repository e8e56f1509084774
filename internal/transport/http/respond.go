package http

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns. Mobile clients key off
// Success and Error.Code, so the shape is part of the wire contract.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func sendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func sendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: &APIError{Message: message, Code: code}})
}

// marshalJSON renders a response body for caching alongside the live reply.
func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
