package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts/pkg/apperr"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

type errorBody struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ErrorHandler turns service and transport errors into {"kind","detail"}
// responses. Errors without a known kind are answered with a generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := errorResponse(err)
	if code == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", code, "error", err)
	}
	if code == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", err)
	}
}

func errorResponse(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail, ok := he.Message.(string)
		if !ok {
			detail = http.StatusText(he.Code)
		}
		return he.Code, errorBody{Kind: statusKind(he.Code), Detail: detail}
	}

	kind := apperr.Kind(err)
	var code int
	switch {
	case errors.Is(err, apperr.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrUnprocessable), errors.Is(err, apperr.ErrValidation):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrBadRequest):
		code = http.StatusBadRequest
	default:
		return http.StatusInternalServerError, errorBody{Kind: kind, Detail: "internal server error"}
	}
	return code, errorBody{Kind: kind, Detail: apperr.Detail(err)}
}

func statusKind(code int) string {
	switch code {
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
}
