package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/queue"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
	"github.com/iliyamo/hotel-guest-access/internal/service"
)

// CustomerHandler groups the dependencies for guest management.  Reads go
// through the reconciler so the is_active flag in every response has been
// recomputed from the reservation set just before being returned.
type CustomerHandler struct {
	Customers   *repository.CustomerRepo
	Credentials *repository.CredentialRepo
	Provisioner *service.Provisioner
	Reconciler  *service.Reconciler
	Notifier    service.Notifier
}

// NewCustomerHandler constructs a new CustomerHandler with the provided
// dependencies.  All dependencies must be non-nil.
func NewCustomerHandler(customers *repository.CustomerRepo, credentials *repository.CredentialRepo, provisioner *service.Provisioner, reconciler *service.Reconciler, notifier service.Notifier) *CustomerHandler {
	if customers == nil || credentials == nil || provisioner == nil || reconciler == nil || notifier == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{
		Customers:   customers,
		Credentials: credentials,
		Provisioner: provisioner,
		Reconciler:  reconciler,
		Notifier:    notifier,
	}
}

type customerReq struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// contactFields normalizes the request's contact fields and enforces that
// at least one of email/phone is present.
func (req *customerReq) contactFields() (email, phone *string, ok bool) {
	e := strings.TrimSpace(strings.ToLower(req.Email))
	p := strings.TrimSpace(req.Phone)
	if e == "" && p == "" {
		return nil, nil, false
	}
	if e != "" {
		email = &e
	}
	if p != "" {
		phone = &p
	}
	return email, phone, true
}

// Create handles POST /v1/customers.  A customer needs a name and at
// least one contact field; the occupancy flag starts false.
func (h *CustomerHandler) Create(c echo.Context) error {
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name is required"})
	}
	email, phone, ok := req.contactFields()
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email or phone is required"})
	}
	customer := model.Customer{ID: uuid.NewString(), FullName: name, Email: email, Phone: phone}
	if err := h.Customers.Create(c.Request().Context(), &customer); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "customer already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create customer failed"})
	}
	return c.JSON(http.StatusCreated, customer)
}

// List handles GET /v1/customers.  Every returned record has been
// reconciled against its reservation windows.
func (h *CustomerHandler) List(c echo.Context) error {
	customers, err := h.Reconciler.ReconcileCustomers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, customers)
}

// Get handles GET /v1/customers/:id with read-triggered reconciliation.
func (h *CustomerHandler) Get(c echo.Context) error {
	customer, err := h.Reconciler.ReconcileCustomer(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, customer)
}

// Update handles PUT /v1/customers/:id and emits a general-update change
// event on success.
func (h *CustomerHandler) Update(c echo.Context) error {
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name is required"})
	}
	email, phone, ok := req.contactFields()
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email or phone is required"})
	}
	ctx := c.Request().Context()
	customer, err := h.Customers.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	customer.FullName = name
	customer.Email = email
	customer.Phone = phone
	if err := h.Customers.Update(ctx, &customer); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update customer failed"})
	}
	h.Notifier.CustomerChanged(ctx, customer, queue.ChangeUpdate)
	return c.JSON(http.StatusOK, customer)
}

// Delete handles DELETE /v1/customers/:id.  Deletion cascades: every
// account the customer could hold in either store is revoked before
// reservations and the customer row are removed.  Revocation must run
// while the reservations still exist, because unmirrored accounts can
// only be found by re-deriving usernames from them.  When revocation
// fails the deletion is aborted, because deleting the relational record
// while credentials stay live in the authentication store would fail
// open.
func (h *CustomerHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	usernames, err := h.Provisioner.RevokeAllForCustomer(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credential revocation failed, retry"})
	}
	tx, err := h.Customers.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Customers.DeleteCascadeTx(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete customer failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"deleted": id, "revoked": len(usernames)})
}

// IssueCredentials handles POST /v1/customers/:id/credentials.  It
// provisions a standalone account (C-prefixed username) for a customer
// with no reservation context.  The plaintext secret appears in this
// response and nowhere else afterward.
func (h *CustomerHandler) IssueCredentials(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := h.Customers.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	creds, err := h.Provisioner.ProvisionForCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "provisioning failed"})
	}
	return c.JSON(http.StatusCreated, creds)
}

// ListCredentials handles GET /v1/customers/:id/credentials.  Secrets are
// never serialized.
func (h *CustomerHandler) ListCredentials(c echo.Context) error {
	accounts, err := h.Credentials.ListByCustomer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, accounts)
}

// RevokeCredentials handles DELETE /v1/customers/:id/credentials.  It
// revokes every account owned by the customer in both stores; accounts
// already absent count as revoked.
func (h *CustomerHandler) RevokeCredentials(c echo.Context) error {
	ctx := c.Request().Context()
	accounts, err := h.Credentials.ListByCustomer(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	usernames := make([]string, 0, len(accounts))
	for _, a := range accounts {
		usernames = append(usernames, a.Username)
	}
	if err := h.Provisioner.RevokeByUsernames(ctx, usernames); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revocation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": len(usernames)})
}
