package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/campus-accounts/internal/auth"
	"github.com/wuwenbin0122/campus-accounts/internal/metrics"
)

const (
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"
)

// RequireAuth admits requests carrying a valid bearer token and attaches the
// verified identity to the request context. A missing or malformed header is
// answered with 401, a token that fails verification with 403.
func RequireAuth(tokens *auth.TokenManager, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.ObserveRejection(metrics.OutcomeMissingToken)
			writeData(c, http.StatusUnauthorized, "Access Denied")
			c.Abort()
			return
		}

		id, err := tokens.Verify(raw)
		if err != nil {
			m.ObserveRejection(metrics.OutcomeInvalidToken)
			loggerFrom(c).Debug("token verification failed", zap.Error(err))
			writeData(c, http.StatusForbidden, "Invalid Token")
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestTimeout bounds the request context, and with it every store call made
// on behalf of the request.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request and exposes a request-scoped logger
// to handlers. Bodies and headers are never logged.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		logger := base.With(
			zap.String("req_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(loggerKey, logger)

		c.Next()

		logger.Info("http_request",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.L()
}
