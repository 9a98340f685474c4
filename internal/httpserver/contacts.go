package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/contacts/internal/models"
	"github.com/Skotchmaster/contacts/internal/service"
	"github.com/Skotchmaster/contacts/internal/util"
	"github.com/Skotchmaster/contacts/pkg/apperr"
)

type ContactsHTTP struct {
	Svc *service.ContactService
}

type contactRequest struct {
	FirstName   string      `json:"first_name" form:"first_name" validate:"required,min=1,max=20"`
	LastName    string      `json:"last_name" form:"last_name" validate:"required,min=2,max=20"`
	Email       string      `json:"email" form:"email" validate:"required,min=10,max=50"`
	Phone       string      `json:"phone" form:"phone" validate:"required,min=7,max=12"`
	Birthday    models.Date `json:"birthday" form:"birthday" validate:"required"`
	Description string      `json:"description" form:"description" validate:"max=250"`
}

func (r contactRequest) input() service.ContactInput {
	return service.ContactInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		Birthday:    r.Birthday,
		Description: r.Description,
	}
}

func (h *ContactsHTTP) List(c echo.Context) error {
	items, err := h.Svc.List(c.Request().Context(), currentUser(c).ID, c.QueryParam("contact_field"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ContactsHTTP) Birthdays(c echo.Context) error {
	days := 0
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperr.Wrap(apperr.ErrValidation, "days must be an integer", err)
		}
		days = n
	}

	items, err := h.Svc.UpcomingBirthdays(c.Request().Context(), currentUser(c).ID, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ContactsHTTP) Search(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	res, err := h.Svc.Search(c.Request().Context(), currentUser(c).ID, c.QueryParam("q"), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ContactsHTTP) Get(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}

	contact, err := h.Svc.Get(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactsHTTP) Create(c echo.Context) error {
	var req contactRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	contact, err := h.Svc.Create(c.Request().Context(), currentUser(c).ID, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, contact)
}

func (h *ContactsHTTP) Update(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}
	var req contactRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	contact, err := h.Svc.Update(c.Request().Context(), currentUser(c).ID, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactsHTTP) Delete(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return err
	}

	contact, err := h.Svc.Delete(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func contactID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.ErrValidation, "contact id must be a positive integer")
	}
	return uint(id), nil
}
