package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/taskhub/pkg/constants"
)

// ClientIdentifier returns the identity a request is counted under: the
// authenticated user when the auth middleware stored one, otherwise the
// client address. It never fails; unusable input falls through to
// constants.UnknownClient.
func ClientIdentifier(c *gin.Context, trustForwarded bool) string {
	if userID := UserID(c); userID != "" {
		return userID
	}
	return ClientIP(c, trustForwarded)
}

// ClientIP returns the client address of the request. The left-most
// X-Forwarded-For entry is used only when forwarded headers are trusted,
// i.e. when the service runs behind a proxy that sets them.
func ClientIP(c *gin.Context, trustForwarded bool) string {
	if c == nil || c.Request == nil {
		return constants.UnknownClient
	}

	if trustForwarded {
		if fwd := c.Request.Header.Get(constants.HeaderForwardedFor); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := parseIP(strings.TrimSpace(first)); ip != "" {
				return ip
			}
		}
	}

	if ip := parseIP(strings.TrimSpace(c.Request.RemoteAddr)); ip != "" {
		return ip
	}
	return constants.UnknownClient
}

// UserID returns the authenticated principal stored on the context, or "".
func UserID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	v, ok := c.Get(string(constants.ContextKeyUserID))
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// parseIP accepts "ip" or "ip:port" and returns the canonical ip, or "".
func parseIP(s string) string {
	if s == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
