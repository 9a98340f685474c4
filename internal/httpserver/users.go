package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts/internal/service"
	"github.com/Skotchmaster/contacts/pkg/apperr"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

type UsersHTTP struct {
	Svc     *service.UserService
	BaseURL string
}

type passwordRequest struct {
	Password string `json:"password" form:"password" query:"password" validate:"required,min=6,max=10"`
}

func (h *UsersHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}

func (h *UsersHTTP) UpdateAvatar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update_avatar")

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("update_avatar_error", "status", 422, "error", err)
		return apperr.Wrap(apperr.ErrValidation, "file is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		l.Error("update_avatar_error", "status", 500, "error", err)
		return err
	}
	defer f.Close()

	user, err := h.Svc.UpdateAvatar(ctx, currentUser(c), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) UpdatePassword(c echo.Context) error {
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	// the password may also come as a query parameter
	if req.Password == "" {
		req.Password = c.QueryParam("password")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Svc.UpdatePassword(c.Request().Context(), currentUser(c), req.Password, baseURL(c, h.BaseURL))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
