package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/occupancy"
)

// In-memory fakes for the store interfaces.  They model just enough
// behavior for the lifecycle tests: conditional writes report whether a
// row actually changed, and injectable errors simulate store outages.

type fakeRooms struct {
	rooms map[uint64]*model.Room
}

func newFakeRooms(rooms ...*model.Room) *fakeRooms {
	m := make(map[uint64]*model.Room, len(rooms))
	for _, r := range rooms {
		m[r.ID] = r
	}
	return &fakeRooms{rooms: m}
}

func (f *fakeRooms) List(ctx context.Context) ([]model.Room, error) {
	out := make([]model.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRooms) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return model.Room{}, errors.New("room not found")
	}
	return *r, nil
}

func (f *fakeRooms) SetUsed(ctx context.Context, id uint64, used bool) (bool, error) {
	r, ok := f.rooms[id]
	if !ok || r.Used == used {
		return false, nil
	}
	r.Used = used
	return true, nil
}

type fakeCustomers struct {
	customers map[string]*model.Customer
}

func newFakeCustomers(customers ...*model.Customer) *fakeCustomers {
	m := make(map[string]*model.Customer, len(customers))
	for _, c := range customers {
		m[c.ID] = c
	}
	return &fakeCustomers{customers: m}
}

func (f *fakeCustomers) List(ctx context.Context) ([]model.Customer, error) {
	out := make([]model.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCustomers) GetByID(ctx context.Context, id string) (model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return model.Customer{}, errors.New("customer not found")
	}
	return *c, nil
}

func (f *fakeCustomers) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	c, ok := f.customers[id]
	if !ok || c.IsActive == active {
		return false, nil
	}
	c.IsActive = active
	return true, nil
}

type fakeReservations struct {
	reservations map[uint64]*model.Reservation
	markErr      error
	marks        map[uint64]string
}

func newFakeReservations(reservations ...*model.Reservation) *fakeReservations {
	m := make(map[uint64]*model.Reservation, len(reservations))
	for _, r := range reservations {
		m[r.ID] = r
	}
	return &fakeReservations{reservations: m, marks: map[uint64]string{}}
}

func (f *fakeReservations) ListWindowsForRoom(ctx context.Context, roomID uint64) ([]occupancy.Window, error) {
	var out []occupancy.Window
	for _, r := range f.reservations {
		if r.RoomID == roomID {
			out = append(out, occupancy.Window{Status: r.Status, CheckIn: r.CheckIn, CheckOut: r.CheckOut})
		}
	}
	return out, nil
}

func (f *fakeReservations) ListWindowsForCustomer(ctx context.Context, customerID string) ([]occupancy.Window, error) {
	var out []occupancy.Window
	for _, r := range f.reservations {
		if r.CustomerID == customerID {
			out = append(out, occupancy.Window{Status: r.Status, CheckIn: r.CheckIn, CheckOut: r.CheckOut})
		}
	}
	return out, nil
}

func (f *fakeReservations) ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.CustomerID == customerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReservations) ListExpiredCheckedIn(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range f.reservations {
		if r.Status == model.ReservationCheckedIn && r.CheckOut.Before(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReservations) TransitionStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	r, ok := f.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

func (f *fakeReservations) SetProvisioningState(ctx context.Context, id uint64, state string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marks[id] = state
	if r, ok := f.reservations[id]; ok {
		r.ProvisioningState = state
	}
	return nil
}

// fakeAuthStore stands in for the RADIUS client.
type fakeAuthStore struct {
	secrets      map[string]string // username -> secret
	groups       map[string]string // username -> groupname
	provisionErr error
	deleteErr    error
	deletes      [][]string
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{secrets: map[string]string{}, groups: map[string]string{}}
}

func (f *fakeAuthStore) ProvisionBatch(ctx context.Context, usernames []string, secret, groupname string) error {
	if f.provisionErr != nil {
		return f.provisionErr
	}
	for _, u := range usernames {
		f.secrets[u] = secret
		if groupname != "" {
			f.groups[u] = groupname
		}
	}
	return nil
}

func (f *fakeAuthStore) DeleteByUsernames(ctx context.Context, usernames []string) error {
	f.deletes = append(f.deletes, usernames)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, u := range usernames {
		delete(f.secrets, u)
		delete(f.groups, u)
	}
	return nil
}

// fakeMirror stands in for the relational credential mirror.
type fakeMirror struct {
	accounts  map[string]model.CredentialAccount
	upsertErr error
	deleteErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{accounts: map[string]model.CredentialAccount{}}
}

func (f *fakeMirror) UpsertBatch(ctx context.Context, accounts []model.CredentialAccount) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, a := range accounts {
		f.accounts[a.Username] = a
	}
	return nil
}

func (f *fakeMirror) DeleteByUsernames(ctx context.Context, usernames []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, u := range usernames {
		delete(f.accounts, u)
	}
	return nil
}

func (f *fakeMirror) ListByCustomer(ctx context.Context, customerID string) ([]model.CredentialAccount, error) {
	var out []model.CredentialAccount
	for _, a := range f.accounts {
		if a.OwnerCustomerID != nil && *a.OwnerCustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeMirror) TakenByOthers(ctx context.Context, usernames []string, reservationID uint64) ([]string, error) {
	var taken []string
	for _, u := range usernames {
		a, ok := f.accounts[u]
		if !ok {
			continue
		}
		if a.ReservationID == nil || *a.ReservationID != reservationID {
			taken = append(taken, u)
		}
	}
	return taken, nil
}

func (f *fakeMirror) OwnedByAnother(ctx context.Context, username, customerID string) (bool, error) {
	a, ok := f.accounts[username]
	if !ok {
		return false, nil
	}
	return a.OwnerCustomerID == nil || *a.OwnerCustomerID != customerID, nil
}

// fakeNotifier records emitted change events.
type notification struct {
	kind   string // "room" or "customer"
	id     string
	change string
	state  bool // Used / IsActive at emission time
}

type fakeNotifier struct {
	events []notification
}

func (f *fakeNotifier) RoomChanged(ctx context.Context, room model.Room, change string) {
	f.events = append(f.events, notification{kind: "room", id: room.RoomNumber, change: change, state: room.Used})
}

func (f *fakeNotifier) CustomerChanged(ctx context.Context, customer model.Customer, change string) {
	f.events = append(f.events, notification{kind: "customer", id: customer.ID, change: change, state: customer.IsActive})
}

// fakeRevoker records revocations for sweep tests.
type fakeRevoker struct {
	revoked [][]string
	err     error
}

func (f *fakeRevoker) RevokeByUsernames(ctx context.Context, usernames []string) error {
	f.revoked = append(f.revoked, usernames)
	return f.err
}
