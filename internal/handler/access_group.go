package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
)

// AccessGroupHandler manages the catalog of network access groups that
// reservations may reference.  The catalog is small and changes rarely,
// so the list endpoint sits behind the response cache.
type AccessGroupHandler struct {
	Groups *repository.AccessGroupRepo
}

// NewAccessGroupHandler constructs a new AccessGroupHandler.
func NewAccessGroupHandler(groups *repository.AccessGroupRepo) *AccessGroupHandler {
	if groups == nil {
		panic("nil dependency passed to NewAccessGroupHandler")
	}
	return &AccessGroupHandler{Groups: groups}
}

// Create handles POST /v1/access-groups.
func (h *AccessGroupHandler) Create(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	group := model.AccessGroup{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.Groups.Create(c.Request().Context(), &group); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "access group already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create access group failed"})
	}
	return c.JSON(http.StatusCreated, group)
}

// List handles GET /v1/access-groups.
func (h *AccessGroupHandler) List(c echo.Context) error {
	groups, err := h.Groups.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, groups)
}

// Get handles GET /v1/access-groups/:id.
func (h *AccessGroupHandler) Get(c echo.Context) error {
	group, err := h.Groups.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "access group not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, group)
}
