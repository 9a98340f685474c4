package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/contacts/internal/service"
	"github.com/Skotchmaster/contacts/pkg/db"
	loggingmw "github.com/Skotchmaster/contacts/pkg/middleware/logging"
)

// MaxBodySize caps request bodies, avatar uploads included.
const MaxBodySize = "2M"

type Deps struct {
	DB             *gorm.DB
	AuthSvc        *service.AuthService
	AuthHandler    *AuthHTTP
	UsersHandler   *UsersHTTP
	ContactHandler *ContactsHTTP

	RateLimitPerMinute int
}

// New returns an echo instance with the error handler, validator and the
// middleware chain shared by every route.
func New(log *slog.Logger, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.HTTPErrorHandler = ErrorHandler
	e.Validator = NewValidator()

	e.Pre(ecM.RemoveTrailingSlash())
	for _, m := range Common(log, corsOrigins) {
		e.Use(m)
	}
	return e
}

func Common(log *slog.Logger, corsOrigins []string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestID(),
		loggingmw.RequestLogger(log),
		ecM.BodyLimit(MaxBodySize),
		ecM.Secure(),
		ecM.CORSWithConfig(ecM.CORSConfig{
			AllowOrigins:     corsOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}),
		ProcessTime,
	}
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"message": "Welcome to Web Assistant"})
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/api/healthchecker", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Error connecting to the database")
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Database is configured correctly"})
	})

	requireUser := RequireUser(d.AuthSvc)
	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/refresh_token", d.AuthHandler.Refresh)
	auth.GET("/confirmed_email/:token", d.AuthHandler.ConfirmEmail)
	auth.POST("/request_email", d.AuthHandler.RequestEmail)
	auth.POST("/logout", d.AuthHandler.Logout, requireUser)

	users := api.Group("/users", requireUser)
	users.GET("/me", d.UsersHandler.Me)
	users.PATCH("/avatar", d.UsersHandler.UpdateAvatar)
	users.PATCH("/update_password", d.UsersHandler.UpdatePassword)

	contacts := api.Group("/contacts", requireUser)
	if d.RateLimitPerMinute > 0 {
		contacts.Use(RateLimit(d.RateLimitPerMinute))
	}
	contacts.GET("", d.ContactHandler.List)
	contacts.POST("", d.ContactHandler.Create)
	contacts.GET("/birthdays", d.ContactHandler.Birthdays)
	contacts.GET("/search", d.ContactHandler.Search)
	contacts.GET("/:id", d.ContactHandler.Get)
	contacts.PUT("/:id", d.ContactHandler.Update)
	contacts.DELETE("/:id", d.ContactHandler.Delete)
}
