package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/internal/service"
	"github.com/Skotchmaster/contacts/pkg/apperr"
	loggingmw "github.com/Skotchmaster/contacts/pkg/middleware/logging"
)

const userKey = "user"

// RequireUser authenticates the bearer access token and stores the user on
// the echo context.
func RequireUser(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return apperr.New(apperr.ErrUnauthorized, "Not authenticated")
			}

			user, err := auth.CurrentUser(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(userKey, user)
			c.Set(loggingmw.UserIDKey, user.ID)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ProcessTime reports the handler duration in seconds in X-Process-Time.
// My-Process-Time carries the same value for older clients.
func ProcessTime(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		c.Response().Before(func() {
			d := strconv.FormatFloat(time.Since(start).Seconds(), 'f', 6, 64)
			c.Response().Header().Set("X-Process-Time", d)
			c.Response().Header().Set("My-Process-Time", d)
		})
		return next(c)
	}
}

// RateLimit allows perMinute requests per route and client IP.
func RateLimit(perMinute int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.Request().Method + " " + c.Path() + "|" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}
