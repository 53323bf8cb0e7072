package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
	"github.com/iliyamo/hotel-guest-access/internal/service"
)

// RoomHandler manages physical room records.  Reads go through the
// reconciler so the used flag in every response reflects the reservation
// set at the moment of the request.
type RoomHandler struct {
	Rooms        *repository.RoomRepo
	Reservations *repository.ReservationRepo
	Reconciler   *service.Reconciler
}

// NewRoomHandler constructs a new RoomHandler.  All dependencies must be
// non-nil.
func NewRoomHandler(rooms *repository.RoomRepo, reservations *repository.ReservationRepo, reconciler *service.Reconciler) *RoomHandler {
	if rooms == nil || reservations == nil || reconciler == nil {
		panic("nil dependency passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Reservations: reservations, Reconciler: reconciler}
}

// Create handles POST /v1/rooms.  Room numbers are unique.
func (h *RoomHandler) Create(c echo.Context) error {
	var req struct {
		RoomNumber string `json:"room_number"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	number := strings.TrimSpace(req.RoomNumber)
	if number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_number is required"})
	}
	room := model.Room{RoomNumber: number}
	if err := h.Rooms.Create(c.Request().Context(), &room); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, room)
}

// List handles GET /v1/rooms with read-triggered reconciliation.
func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Reconciler.ReconcileRooms(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, rooms)
}

// Get handles GET /v1/rooms/:id with read-triggered reconciliation.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	room, err := h.Reconciler.ReconcileRoom(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, room)
}

// ListReservations handles GET /v1/rooms/:id/reservations.
func (h *RoomHandler) ListReservations(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	reservations, err := h.Reservations.ListByRoom(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, reservations)
}

// Delete handles DELETE /v1/rooms/:id.  Rooms with reservations cannot
// be deleted.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	if err := h.Rooms.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room has reservations"})
		}
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete room failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
