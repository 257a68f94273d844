package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GreetingText is the body served by GET /hello.
const GreetingText = "Привет, Spring Boot! 🎉"

// Greeting returns GreetingText as UTF-8 plain text with a 200 status.  It
// reads nothing from the request and holds no state, so concurrent calls
// never interfere.
func Greeting(c echo.Context) error {
	return c.String(http.StatusOK, GreetingText)
}
