package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionIDHeader carries the client session used to key user settings.
	SessionIDHeader = "X-Session-ID"
	// SessionIDLocalKey is the locals key holding the session ID.
	SessionIDLocalKey = "session_id"

	maxSessionIDLen = 64
)

// Session reads X-Session-ID, minting a UUID when it is absent or malformed,
// and echoes the value back so clients can keep it.
func Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(SessionIDHeader)
		if !validToken(id, maxSessionIDLen) {
			id = uuid.NewString()
		}
		c.Locals(SessionIDLocalKey, id)
		c.Set(SessionIDHeader, id)
		return c.Next()
	}
}

// SessionID returns the session stored by Session, or "".
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(SessionIDLocalKey).(string)
	return id
}
