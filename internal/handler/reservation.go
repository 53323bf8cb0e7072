package handler

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
	"github.com/iliyamo/hotel-guest-access/internal/service"
	"github.com/iliyamo/hotel-guest-access/internal/utils"
)

// ReservationHandler implements the booking surface.  Creation books a
// room and checks the guest in as one operation; credentials are
// provisioned synchronously afterward but never block the booking, and
// the reconciler flips the dependent customer/room flags before the
// response is written.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Customers    *repository.CustomerRepo
	AccessGroups *repository.AccessGroupRepo
	Credentials  *repository.CredentialRepo
	Radius       *repository.RadiusRepo
	Provisioner  *service.Provisioner
	Reconciler   *service.Reconciler
}

// NewReservationHandler constructs a new ReservationHandler.  All
// dependencies must be non-nil.
func NewReservationHandler(reservations *repository.ReservationRepo, customers *repository.CustomerRepo, groups *repository.AccessGroupRepo, credentials *repository.CredentialRepo, radius *repository.RadiusRepo, provisioner *service.Provisioner, reconciler *service.Reconciler) *ReservationHandler {
	if reservations == nil || customers == nil || groups == nil || credentials == nil || radius == nil || provisioner == nil || reconciler == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{
		Reservations: reservations,
		Customers:    customers,
		AccessGroups: groups,
		Credentials:  credentials,
		Radius:       radius,
		Provisioner:  provisioner,
		Reconciler:   reconciler,
	}
}

type createReservationReq struct {
	CustomerID    string `json:"customer_id"`
	RoomID        uint64 `json:"room_id"`
	GuestCount    int    `json:"guest_count"`
	CheckIn       string `json:"check_in"`  // RFC3339
	CheckOut      string `json:"check_out"` // RFC3339
	AccessGroupID string `json:"access_group_id"`
}

// Create handles POST /v1/reservations.  Booking equals immediate
// occupancy: the reservation is created directly in CHECKED_IN after an
// atomic room-availability check.  When an access group is requested,
// guest accounts R{room}-{1..n} are provisioned with one shared secret;
// the secret appears in this response exactly once.  An
// authentication-store outage does not fail the booking; the
// reservation carries a FAILED provisioning marker instead.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.GuestCount < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_count must be at least 1"})
	}
	checkIn, err := time.Parse(time.RFC3339, req.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be RFC3339"})
	}
	checkOut, err := time.Parse(time.RFC3339, req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be RFC3339"})
	}
	if !checkIn.Before(checkOut) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be before check_out"})
	}
	ctx := c.Request().Context()
	if _, err := h.Customers.GetByID(ctx, req.CustomerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var accessGroup *string
	if g := strings.TrimSpace(req.AccessGroupID); g != "" {
		if _, err := h.AccessGroups.GetByID(ctx, g); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown access group"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		accessGroup = &g
	}
	res := model.Reservation{
		CustomerID:    req.CustomerID,
		RoomID:        req.RoomID,
		GuestCount:    req.GuestCount,
		CheckIn:       checkIn.UTC(),
		CheckOut:      checkOut.UTC(),
		AccessGroupID: accessGroup,
	}
	if err := h.Reservations.CreateCheckedIn(ctx, &res); err != nil {
		if errors.Is(err, repository.ErrRoomOccupied) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room occupied for requested window"})
		}
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation failed"})
	}
	// Credential provisioning never blocks the booking; failures are
	// recorded on the reservation and retried out of band.
	creds, err := h.Provisioner.ProvisionForReservation(ctx, res)
	if err != nil {
		log.Printf("reservation %d: provisioning not completed: %v", res.ID, err)
	}
	if _, err := h.Reconciler.ReconcileRoom(ctx, res.RoomID); err != nil {
		log.Printf("reservation %d: reconcile room failed: %v", res.ID, err)
	}
	if _, err := h.Reconciler.ReconcileCustomer(ctx, res.CustomerID); err != nil {
		log.Printf("reservation %d: reconcile customer failed: %v", res.ID, err)
	}
	if updated, err := h.Reservations.GetByID(ctx, res.ID); err == nil {
		res = updated
	}
	body := echo.Map{"reservation": res}
	if creds != nil {
		body["credentials"] = creds
	}
	return c.JSON(http.StatusCreated, body)
}

// List handles GET /v1/reservations with optional customer_id/room_id
// filters.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if customerID := c.QueryParam("customer_id"); customerID != "" {
		reservations, err := h.Reservations.ListByCustomer(ctx, customerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, reservations)
	}
	if roomParam := c.QueryParam("room_id"); roomParam != "" {
		roomID, err := strconv.ParseUint(roomParam, 10, 64)
		if err != nil || roomID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room_id"})
		}
		reservations, err := h.Reservations.ListByRoom(ctx, roomID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, reservations)
	}
	reservations, err := h.Reservations.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, reservations)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Reservations.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateStatus handles PATCH /v1/reservations/:id/status.  Only
// transitions out of CHECKED_IN to CHECKED_OUT or CANCELED are accepted.
// The transition is conditional, so a retried or duplicated call finds
// the reservation already in the target status and becomes a no-op.
// Credential revocation failures are logged, never surfaced: ending
// occupancy must not be blocked by an authentication-store outage.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	target := strings.ToUpper(strings.TrimSpace(req.Status))
	if target != model.ReservationCheckedOut && target != model.ReservationCanceled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be CHECKED_OUT or CANCELED"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if res.Status == target {
		return c.JSON(http.StatusOK, res) // retried call, nothing to do
	}
	moved, err := h.Reservations.TransitionStatus(ctx, id, model.ReservationCheckedIn, target)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transition failed"})
	}
	if !moved {
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not CHECKED_IN"})
	}
	if res.AccessGroupID != nil && res.ProvisioningState != model.ProvisioningNone {
		usernames := utils.ReservationUsernames(res.RoomNumber, res.GuestCount)
		if err := h.Provisioner.RevokeByUsernames(ctx, usernames); err != nil {
			log.Printf("reservation %d: revoke on %s failed: %v", id, target, err)
		}
	}
	if _, err := h.Reconciler.ReconcileCustomer(ctx, res.CustomerID); err != nil {
		log.Printf("reservation %d: reconcile customer failed: %v", id, err)
	}
	if _, err := h.Reconciler.ReconcileRoom(ctx, res.RoomID); err != nil {
		log.Printf("reservation %d: reconcile room failed: %v", id, err)
	}
	updated, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// ListCredentials handles GET /v1/reservations/:id/credentials.  It
// reports the reservation's derived usernames alongside what each store
// actually holds, so operators can see drift (a FAILED or PENDING
// provisioning state) at the account level.  Secrets are never included.
func (h *ReservationHandler) ListCredentials(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	usernames := utils.ReservationUsernames(res.RoomNumber, res.GuestCount)
	mirrored, err := h.Credentials.ListByReservation(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	inAuthStore, err := h.Radius.ExistingUsernames(ctx, usernames)
	if err != nil {
		// The drift report itself must survive an authentication-store
		// outage; report the mirror view with an explicit marker.
		log.Printf("reservation %d: auth store lookup failed: %v", id, err)
		return c.JSON(http.StatusOK, echo.Map{
			"provisioning_state":   res.ProvisioningState,
			"usernames":            usernames,
			"mirrored":             mirrored,
			"auth_store_reachable": false,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"provisioning_state":   res.ProvisioningState,
		"usernames":            usernames,
		"mirrored":             mirrored,
		"in_auth_store":        inAuthStore,
		"auth_store_reachable": true,
	})
}

// Sweep handles POST /v1/sweep: the on-demand counterpart of the
// periodic expiry sweep.  Both share one implementation and are
// idempotent, so callers may trigger it freely.
func (h *ReservationHandler) Sweep(c echo.Context) error {
	stats, err := h.Reconciler.SweepExpiredReservations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, stats)
}
