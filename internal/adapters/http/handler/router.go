package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-api/internal/adapters/http/middleware"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig は HTTP ルーターの構成要素です。
type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	Logger         *logger.Logger
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler
	Authenticator  middleware.Authenticator

	Users     *UserHandler
	Employees *EmployeeHandler
	Companies *CompanyHandler
	Health    *HealthHandler
}

// NewRouter はルーティングとミドルウェアを組み立てます。
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		otelgin.Middleware(cfg.ServiceName),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.Metrics(cfg.Metrics),
		middleware.CORS(cfg.AllowedOrigins),
		gin.Recovery(),
		ErrorHandler(cfg.Logger),
	)

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Healthz)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	r.POST("/signup", cfg.Users.Signup)
	r.POST("/login", cfg.Users.Login)

	r.GET("/employees", cfg.Employees.Get)
	r.GET("/companies", cfg.Companies.Get)
	r.GET("/companies/salary", cfg.Companies.Salary)

	protected := r.Group("/")
	protected.Use(middleware.RequireAuth(cfg.Authenticator))
	protected.POST("/employees", cfg.Employees.Create)
	protected.DELETE("/employees", cfg.Employees.Delete)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "route not found")
	})

	return r
}
