package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// memberKey returns a stable identifier for the requesting member, or
// "guest" when the request is unauthenticated. Used by the rate
// limiter and the response cache to partition keys per member.
func memberKey(c echo.Context) string {
	if id, ok := c.Get("member_id").(uint64); ok && id > 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
