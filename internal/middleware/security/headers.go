package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

// HeadersMiddleware sets the baseline security headers for the JSON API.
// The service never serves HTML, so the CSP locks everything down and only
// opens connect-src for the dashboards that call it.
func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	csp := "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
	if len(cfg.AllowedOrigins) > 0 {
		csp = "default-src 'none'; connect-src 'self' " +
			strings.Join(cfg.AllowedOrigins, " ") +
			"; frame-ancestors 'none'; base-uri 'none'"
	}

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", csp)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}
