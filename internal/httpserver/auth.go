package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts/internal/service"
	"github.com/Skotchmaster/contacts/pkg/apperr"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	BaseURL string
}

type signupRequest struct {
	Username string `json:"username" form:"username" validate:"required,min=5,max=16"`
	Email    string `json:"email" form:"email" validate:"required,email,max=250"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=10"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" form:"email" validate:"required,email,max=250"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("signup_error", "status", 422, "error", err)
		return err
	}

	user, err := h.Svc.Signup(ctx, service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, baseURL(c, h.BaseURL))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":   user,
		"detail": service.MsgSignedUp,
	})
}

// Login accepts the OAuth2 password form as well as a JSON body; username
// carries the email.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("login_error", "status", 422, "error", err)
		return err
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return apperr.New(apperr.ErrUnauthorized, "Not authenticated")
	}

	pair, err := h.Svc.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) ConfirmEmail(c echo.Context) error {
	msg, err := h.Svc.ConfirmEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

func (h *AuthHTTP) RequestEmail(c echo.Context) error {
	var req emailRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	msg, err := h.Svc.RequestEmail(c.Request().Context(), req.Email, baseURL(c, h.BaseURL))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.Svc.Logout(ctx, currentUser(c)); err != nil {
		return err
	}

	logging.FromContext(ctx).Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": service.MsgLoggedOut})
}

func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(dst)
}

// baseURL is the configured public URL or, when empty, the scheme and host
// the request came in on.
func baseURL(c echo.Context, configured string) string {
	if configured != "" {
		return configured
	}
	return c.Scheme() + "://" + c.Request().Host
}
