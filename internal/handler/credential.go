package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-guest-access/internal/repository"
)

// CredentialHandler exposes staff inspection and tuning of individual
// accounts across both stores.  It never returns secret values.
type CredentialHandler struct {
	Credentials *repository.CredentialRepo
	Radius      *repository.RadiusRepo
}

// NewCredentialHandler constructs a new CredentialHandler.
func NewCredentialHandler(credentials *repository.CredentialRepo, radius *repository.RadiusRepo) *CredentialHandler {
	if credentials == nil || radius == nil {
		panic("nil dependency passed to NewCredentialHandler")
	}
	return &CredentialHandler{Credentials: credentials, Radius: radius}
}

// Get handles GET /v1/credentials/:username.  It joins the mirror row
// with the authentication store's check attributes so staff see both
// sides of one account in one place.  The password attribute's value is
// redacted; other attributes (policy knobs) are shown as stored.
func (h *CredentialHandler) Get(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is required"})
	}
	ctx := c.Request().Context()
	attrs, err := h.Radius.ListCheckAttributes(ctx, username)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "auth store error"})
	}
	for i := range attrs {
		if attrs[i].Attribute == repository.PasswordAttribute {
			attrs[i].Value = "<redacted>"
		}
	}
	body := echo.Map{"username": username, "check_attributes": attrs}
	mirror, err := h.Credentials.GetByUsername(ctx, username)
	switch {
	case err == nil:
		body["mirrored"] = mirror
	case errors.Is(err, sql.ErrNoRows):
		body["mirrored"] = nil
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(attrs) == 0 && errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "credential account not found"})
	}
	return c.JSON(http.StatusOK, body)
}

// SetAttribute handles PUT /v1/credentials/:username/attributes.  It
// upserts a single check attribute keyed by (username, attribute), e.g. a
// session timeout.  The password attribute cannot be set this way; it is
// owned by the provisioning flow.
func (h *CredentialHandler) SetAttribute(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is required"})
	}
	var req struct {
		Attribute string `json:"attribute"`
		Op        string `json:"op"`
		Value     string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	attribute := strings.TrimSpace(req.Attribute)
	if attribute == "" || strings.TrimSpace(req.Value) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attribute and value are required"})
	}
	if attribute == repository.PasswordAttribute {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password attribute is managed by provisioning"})
	}
	op := strings.TrimSpace(req.Op)
	if op == "" {
		op = repository.AttributeSetOp
	}
	attr := repository.CheckAttribute{Username: username, Attribute: attribute, Op: op, Value: req.Value}
	if err := h.Radius.UpsertCheckAttribute(c.Request().Context(), attr); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "auth store error"})
	}
	return c.JSON(http.StatusOK, attr)
}
