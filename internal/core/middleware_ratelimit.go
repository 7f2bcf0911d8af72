package core

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hydrosnap/internal/types"
)

const scanRateWindow = time.Minute

// ScanRateLimit limits credential scans per client IP. It fails open when
// the limiter errors and passes through when no limiter or limit is set.
func (s *Server) ScanRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if s.Config != nil {
			limit = s.Config.Server.ScanRateLimit
		}
		if s.RateLimiter == nil || limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractClientIP(r)
		result, err := s.RateLimiter.Allow(r.Context(), "scan:"+ip, limit, scanRateWindow)
		if err != nil {
			s.Logger.Error("rate limiter error", slog.String("ip", ip), slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := max(int(time.Until(result.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			s.Logger.Warn("scan rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
			Error(w, r, types.NewAppError(types.ErrCodeRateLimited,
				"Too many scans. Please wait before trying again.", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractClientIP prefers the first X-Forwarded-For entry and falls back
// to RemoteAddr without its port.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
