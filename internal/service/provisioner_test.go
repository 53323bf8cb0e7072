package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
)

func testProvisioner(store *fakeAuthStore, mirror *fakeMirror, marker *fakeReservations) *Provisioner {
	p := NewProvisioner(store, mirror, marker)
	p.newSecret = func() (string, error) { return "abc234", nil }
	return p
}

func reservationWithGroup(id uint64, group string) model.Reservation {
	return model.Reservation{
		ID: id, CustomerID: "c1", RoomID: 1, RoomNumber: "101",
		GuestCount: 2, AccessGroupID: &group,
	}
}

func TestProvisionForReservation(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	marker := newFakeReservations()
	p := testProvisioner(store, mirror, marker)

	creds, err := p.ProvisionForReservation(context.Background(), reservationWithGroup(7, "conference"))
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, []string{"R101-1", "R101-2"}, creds.Usernames)
	assert.Equal(t, "abc234", creds.Secret)

	// Both guests share the one secret in the authentication store and
	// carry the reservation's group.
	assert.Equal(t, "abc234", store.secrets["R101-1"])
	assert.Equal(t, "abc234", store.secrets["R101-2"])
	assert.Equal(t, "conference", store.groups["R101-2"])

	// Mirror rows exist and the reservation is marked OK.
	assert.Len(t, mirror.accounts, 2)
	assert.Equal(t, model.ProvisioningOK, marker.marks[uint64(7)])
}

func TestProvisionForReservationWithoutGroup(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	marker := newFakeReservations()
	p := testProvisioner(store, mirror, marker)

	res := model.Reservation{ID: 3, CustomerID: "c1", RoomNumber: "101", GuestCount: 2}
	creds, err := p.ProvisionForReservation(context.Background(), res)
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.Empty(t, store.secrets)
	assert.Equal(t, model.ProvisioningNone, marker.marks[uint64(3)])
}

func TestProvisionForReservationIsolatesAuthStoreFailure(t *testing.T) {
	store := newFakeAuthStore()
	store.provisionErr = assert.AnError
	mirror := newFakeMirror()
	marker := newFakeReservations()
	p := testProvisioner(store, mirror, marker)

	// The business operation must not fail: no error, no credentials,
	// and the drift is recorded on the reservation.
	creds, err := p.ProvisionForReservation(context.Background(), reservationWithGroup(7, "conference"))
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.Empty(t, mirror.accounts)
	assert.Equal(t, model.ProvisioningFailed, marker.marks[uint64(7)])
}

func TestProvisionForReservationMirrorFailureKeepsCredentials(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	mirror.upsertErr = assert.AnError
	marker := newFakeReservations()
	p := testProvisioner(store, mirror, marker)

	// The authoritative rows were written, so the guest can connect; the
	// reservation stays PENDING until the mirror catches up.
	creds, err := p.ProvisionForReservation(context.Background(), reservationWithGroup(7, "conference"))
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, model.ProvisioningPending, marker.marks[uint64(7)])
}

func TestProvisionForReservationRejectsForeignUsernames(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	other := uint64(99)
	mirror.accounts["R101-1"] = model.CredentialAccount{Username: "R101-1", ReservationID: &other}
	marker := newFakeReservations()
	p := testProvisioner(store, mirror, marker)

	creds, err := p.ProvisionForReservation(context.Background(), reservationWithGroup(7, "conference"))
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
	assert.Nil(t, creds)
	assert.Empty(t, store.secrets)
	assert.Equal(t, model.ProvisioningFailed, marker.marks[uint64(7)])
}

func TestProvisionForReservationReissueOverOwnRows(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	own := uint64(7)
	mirror.accounts["R101-1"] = model.CredentialAccount{Username: "R101-1", ReservationID: &own}
	marker := newFakeReservations()
	p := testProvisioner(store, mirror, marker)

	// Retrying provisioning for the same reservation overwrites its own
	// rows instead of failing.
	creds, err := p.ProvisionForReservation(context.Background(), reservationWithGroup(7, "conference"))
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, model.ProvisioningOK, marker.marks[uint64(7)])
}

func TestProvisionForCustomer(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	p := testProvisioner(store, mirror, newFakeReservations())

	creds, err := p.ProvisionForCustomer(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, []string{"C550e8400"}, creds.Usernames)
	assert.Equal(t, "abc234", store.secrets["C550e8400"])
	// Standalone accounts carry no group.
	assert.NotContains(t, store.groups, "C550e8400")
}

func TestProvisionForCustomerRejectsForeignOwner(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	otherOwner := "someone-else"
	mirror.accounts["C550e8400"] = model.CredentialAccount{Username: "C550e8400", OwnerCustomerID: &otherOwner}
	p := testProvisioner(store, mirror, newFakeReservations())

	creds, err := p.ProvisionForCustomer(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)
	assert.Nil(t, creds)
}

func TestProvisionForCustomerSurfacesAuthStoreFailure(t *testing.T) {
	store := newFakeAuthStore()
	store.provisionErr = assert.AnError
	p := testProvisioner(store, newFakeMirror(), newFakeReservations())

	_, err := p.ProvisionForCustomer(context.Background(), "550e8400-e29b-41d4-a716-446655440000")
	assert.Error(t, err)
}

func TestRevokeAllForCustomerEmptiesBothStores(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	res := reservationWithGroup(7, "conference")
	marker := newFakeReservations(&res)
	p := testProvisioner(store, mirror, marker)

	_, err := p.ProvisionForReservation(context.Background(), res)
	require.NoError(t, err)
	_, err = p.ProvisionForCustomer(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, store.secrets, 3)
	require.Len(t, mirror.accounts, 3)

	usernames, err := p.RevokeAllForCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, usernames, 3)
	assert.Empty(t, store.secrets)
	assert.Empty(t, mirror.accounts)
}

func TestRevokeAllForCustomerCoversUnmirroredAccounts(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	mirror.upsertErr = assert.AnError
	res := reservationWithGroup(7, "conference")
	marker := newFakeReservations(&res)
	p := testProvisioner(store, mirror, marker)

	// A mirror failure after the authentication-store batch leaves live
	// rows with no mirror entry to find them by.
	creds, err := p.ProvisionForReservation(context.Background(), res)
	require.NoError(t, err)
	require.NotNil(t, creds)
	require.Len(t, store.secrets, 2)
	require.Empty(t, mirror.accounts)

	// The cascade must still reach them by re-deriving usernames from the
	// customer's reservations.
	usernames, err := p.RevokeAllForCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.Contains(t, usernames, "R101-1")
	assert.Contains(t, usernames, "R101-2")
	assert.Empty(t, store.secrets)
}

func TestRevokeAllForCustomerSkipsForeignStandalone(t *testing.T) {
	store := newFakeAuthStore()
	mirror := newFakeMirror()
	otherOwner := "someone-else"
	mirror.accounts["Cc1"] = model.CredentialAccount{Username: "Cc1", OwnerCustomerID: &otherOwner}
	store.secrets["Cc1"] = "zzz999"
	p := testProvisioner(store, mirror, newFakeReservations())

	usernames, err := p.RevokeAllForCustomer(context.Background(), "c1")
	require.NoError(t, err)
	assert.NotContains(t, usernames, "Cc1")
	assert.Equal(t, "zzz999", store.secrets["Cc1"])
}

func TestRevokeByUsernames(t *testing.T) {
	store := newFakeAuthStore()
	store.secrets["R101-1"] = "abc234"
	mirror := newFakeMirror()
	mirror.accounts["R101-1"] = model.CredentialAccount{Username: "R101-1"}
	p := testProvisioner(store, mirror, newFakeReservations())

	require.NoError(t, p.RevokeByUsernames(context.Background(), []string{"R101-1", "R101-2"}))
	assert.Empty(t, store.secrets)
	assert.Empty(t, mirror.accounts)

	// Revoking already-absent accounts is a success.
	require.NoError(t, p.RevokeByUsernames(context.Background(), []string{"R101-1"}))
	// Empty input never touches the stores.
	storeCalls := len(store.deletes)
	require.NoError(t, p.RevokeByUsernames(context.Background(), nil))
	assert.Len(t, store.deletes, storeCalls)
}

func TestRevokeByUsernamesAttemptsBothStores(t *testing.T) {
	store := newFakeAuthStore()
	store.deleteErr = assert.AnError
	mirror := newFakeMirror()
	mirror.accounts["R101-1"] = model.CredentialAccount{Username: "R101-1"}
	p := testProvisioner(store, mirror, newFakeReservations())

	err := p.RevokeByUsernames(context.Background(), []string{"R101-1"})
	assert.Error(t, err)
	// The mirror delete still happened despite the auth-store failure.
	assert.Empty(t, mirror.accounts)
}
