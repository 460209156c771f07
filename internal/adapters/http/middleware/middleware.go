package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ogurasousui/staffing-api/internal/core/user"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
)

const (
	// HeaderRequestID はリクエスト ID を運ぶヘッダーです。
	HeaderRequestID = "X-Request-ID"
	// HeaderAuthToken は Authorization ヘッダーの代わりに使えるトークンヘッダーです。
	HeaderAuthToken = "X-Auth-Token"

	requestIDKey = "request_id"
	principalKey = "principal"
)

// RequestID は受信したリクエスト ID を引き継ぎ、無ければ採番します。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFrom はリクエスト ID を返します。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger はリクエストごとにアクセスログを出力します。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(c),
		}
		if p, ok := PrincipalFrom(c); ok {
			fields = append(fields, "user_id", p.UserID)
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// HTTPObserver はリクエストの処理時間を記録します。
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

// Metrics はリクエストの処理時間を observer に渡します。
func Metrics(m HTTPObserver) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(routeOf(c), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// CORS は許可オリジンを指定した CORS ミドルウェアを返します。未指定の場合は全オリジンを許可します。
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", HeaderAuthToken, HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// Authenticator はアクセストークンを検証します。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.Principal, error)
}

// RequireAuth は検証済みの呼び出し元をコンテキストに添付します。
// 失敗時は user.ErrUnauthenticated を gin のエラーとして積み、後続を中断します。
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			_ = c.Error(user.ErrUnauthenticated)
			c.Abort()
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom は RequireAuth が添付した呼び出し元を返します。
func PrincipalFrom(c *gin.Context) (*user.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*user.Principal)
	return p, ok && p != nil
}

func bearerToken(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(c.GetHeader(HeaderAuthToken))
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
