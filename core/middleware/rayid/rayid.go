// Package rayid assigns a unique request id to every incoming request so
// log lines belonging to one request can be correlated.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the response header carrying the request id.
const HeaderName = "X-Ray-Id"

// New returns middleware that generates a RayID per request, stores it in
// the context locals under "ray_id" and echoes it in the response header.
// An incoming X-Ray-Id header is honored so upstream proxies can trace.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(HeaderName)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set(HeaderName, rid)
		return c.Next()
	}
}
