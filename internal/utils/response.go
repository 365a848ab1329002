package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends the standard error envelope. Clients read the message
// from the "error" field.
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Error:     message,
		Status:    status,
		Ok:        false,
		Type:      errorType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "notFound")
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Ok        bool   `json:"ok"`
	Type      string `json:"type,omitempty"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
}

// AvailabilityResponse is the username availability answer
type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// ClaimResponse is the username claim answer
type ClaimResponse struct {
	Ok      bool        `json:"ok"`
	Profile interface{} `json:"profile"`
}

// ViewsResponse carries a profile's view count
type ViewsResponse struct {
	Views uint64 `json:"views"`
}

// CheckoutResponse carries the hosted checkout URL
type CheckoutResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a webhook delivery
type WebhookResponse struct {
	Received bool `json:"received"`
}
