package authapi

import (
	"net/http"
	"strings"
)

// audit emits one security event with the request origin attached.
func (h *Handler) audit(r *http.Request, action string, attrs ...any) {
	if h == nil || h.log == nil {
		return
	}
	attrs = append(attrs,
		"ip", clientIP(r, h.cfg.TrustProxy),
		"user_agent", trimUA(r.UserAgent()),
	)
	h.log.InfoContext(r.Context(), action, attrs...)
}

func trimUA(ua string) string {
	ua = strings.TrimSpace(ua)
	if len(ua) > 256 {
		return ua[:256]
	}
	return ua
}
