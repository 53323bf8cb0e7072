// Package service holds the guest access lifecycle core: the credential
// provisioner, the occupancy reconciler and the change-event notifier.
// Store clients are injected as narrow interfaces so the core never
// reaches for ambient globals and tests can substitute fakes.
package service

import (
	"context"
	"log"

	"github.com/iliyamo/hotel-guest-access/internal/model"
	"github.com/iliyamo/hotel-guest-access/internal/repository"
	"github.com/iliyamo/hotel-guest-access/internal/utils"
)

// CredentialStore is the slice of the authentication-store client the
// provisioner needs.  Implemented by repository.RadiusRepo.
type CredentialStore interface {
	ProvisionBatch(ctx context.Context, usernames []string, secret, groupname string) error
	DeleteByUsernames(ctx context.Context, usernames []string) error
}

// CredentialMirror is the relational-store mirror of credential accounts.
// Implemented by repository.CredentialRepo.
type CredentialMirror interface {
	UpsertBatch(ctx context.Context, accounts []model.CredentialAccount) error
	DeleteByUsernames(ctx context.Context, usernames []string) error
	ListByCustomer(ctx context.Context, customerID string) ([]model.CredentialAccount, error)
	TakenByOthers(ctx context.Context, usernames []string, reservationID uint64) ([]string, error)
	OwnedByAnother(ctx context.Context, username, customerID string) (bool, error)
}

// ProvisioningMarker records the outcome of the provisioning leg on the
// reservation row and lists a customer's reservations so cascade
// revocation can re-derive usernames independently of the mirror.
// Implemented by repository.ReservationRepo.
type ProvisioningMarker interface {
	SetProvisioningState(ctx context.Context, id uint64, state string) error
	ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error)
}

// GuestCredentials is returned to the caller exactly once at provisioning
// time.  The plaintext secret is never re-readable through the API
// afterward; all guests of one reservation share the single secret so it
// can be communicated to the room as a whole.
type GuestCredentials struct {
	Usernames []string `json:"usernames"`
	Secret    string   `json:"secret"`
}

// Provisioner creates and revokes guest accounts in the authentication
// store and mirrors them into the relational store.  Authentication-store
// failures are isolated here: they are logged and recorded as a
// provisioning-state marker on the reservation, never propagated to the
// business operation that triggered provisioning.  Check-in must not fail
// because the authentication subsystem is degraded; stale or missing
// credentials fail closed (no network access), which is the safe
// direction, and the drift is closed by a later sweep or operator retry.
type Provisioner struct {
	store     CredentialStore
	mirror    CredentialMirror
	marker    ProvisioningMarker
	newSecret func() (string, error)
}

// NewProvisioner constructs a Provisioner.  All dependencies must be
// non-nil.
func NewProvisioner(store CredentialStore, mirror CredentialMirror, marker ProvisioningMarker) *Provisioner {
	if store == nil || mirror == nil || marker == nil {
		panic("nil dependency passed to NewProvisioner")
	}
	return &Provisioner{store: store, mirror: mirror, marker: marker, newSecret: utils.NewSecret}
}

// ProvisionForReservation issues guestCount accounts named
// R{roomNumber}-{1..n} with one shared secret for the reservation's
// access group.  The authentication-store rows are written as one atomic
// batch within that store; on success the same rows are mirrored into the
// relational store.  Reservations without an access group get no
// accounts and a NONE marker.
//
// The returned error is non-nil only for conditions the caller must
// surface: a username collision with an unrelated account
// (repository.ErrUsernameTaken) or a relational-store failure during the
// collision check.  An authentication-store failure yields (nil, nil)
// after logging and marking the reservation FAILED.
func (p *Provisioner) ProvisionForReservation(ctx context.Context, res model.Reservation) (*GuestCredentials, error) {
	if res.AccessGroupID == nil {
		return nil, p.marker.SetProvisioningState(ctx, res.ID, model.ProvisioningNone)
	}
	usernames := utils.ReservationUsernames(res.RoomNumber, res.GuestCount)
	taken, err := p.mirror.TakenByOthers(ctx, usernames, res.ID)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		log.Printf("provisioner: username collision for reservation %d: %v", res.ID, taken)
		if merr := p.marker.SetProvisioningState(ctx, res.ID, model.ProvisioningFailed); merr != nil {
			log.Printf("provisioner: marking reservation %d FAILED failed: %v", res.ID, merr)
		}
		return nil, repository.ErrUsernameTaken
	}
	secret, err := p.newSecret()
	if err != nil {
		return nil, err
	}
	if err := p.store.ProvisionBatch(ctx, usernames, secret, *res.AccessGroupID); err != nil {
		log.Printf("provisioner: auth store write failed for reservation %d: %v", res.ID, err)
		if merr := p.marker.SetProvisioningState(ctx, res.ID, model.ProvisioningFailed); merr != nil {
			log.Printf("provisioner: marking reservation %d FAILED failed: %v", res.ID, merr)
		}
		return nil, nil
	}
	accounts := make([]model.CredentialAccount, 0, len(usernames))
	for _, u := range usernames {
		owner := res.CustomerID
		resID := res.ID
		accounts = append(accounts, model.CredentialAccount{
			Username:        u,
			Secret:          secret,
			GroupID:         res.AccessGroupID,
			OwnerCustomerID: &owner,
			ReservationID:   &resID,
			IsActive:        true,
		})
	}
	state := model.ProvisioningOK
	if err := p.mirror.UpsertBatch(ctx, accounts); err != nil {
		// The authoritative rows exist; only the audit mirror is behind.
		log.Printf("provisioner: mirror write failed for reservation %d: %v", res.ID, err)
		state = model.ProvisioningPending
	}
	if err := p.marker.SetProvisioningState(ctx, res.ID, state); err != nil {
		log.Printf("provisioner: marking reservation %d %s failed: %v", res.ID, state, err)
	}
	return &GuestCredentials{Usernames: usernames, Secret: secret}, nil
}

// ProvisionForCustomer issues a single standalone account named
// C{first 8 chars of the customer id} with no reservation context, e.g.
// for reactivating a returning guest before a room is assigned.  Unlike
// the reservation path there is no business state change at risk, so
// authentication-store failures are returned to the caller.
func (p *Provisioner) ProvisionForCustomer(ctx context.Context, customerID string) (*GuestCredentials, error) {
	username := utils.CustomerUsername(customerID)
	owned, err := p.mirror.OwnedByAnother(ctx, username, customerID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, repository.ErrUsernameTaken
	}
	secret, err := p.newSecret()
	if err != nil {
		return nil, err
	}
	if err := p.store.ProvisionBatch(ctx, []string{username}, secret, ""); err != nil {
		return nil, err
	}
	owner := customerID
	account := model.CredentialAccount{
		Username:        username,
		Secret:          secret,
		OwnerCustomerID: &owner,
		IsActive:        true,
	}
	if err := p.mirror.UpsertBatch(ctx, []model.CredentialAccount{account}); err != nil {
		log.Printf("provisioner: mirror write failed for customer %s: %v", customerID, err)
	}
	return &GuestCredentials{Usernames: []string{username}, Secret: secret}, nil
}

// RevokeAllForCustomer revokes every account the customer could hold in
// either store and returns the usernames it targeted.  The target set is
// the union of the mirrored rows, the usernames re-derived from the
// customer's reservations, and the standalone C-username.  The mirror
// alone is not enough: when a mirror write failed after the
// authentication-store batch succeeded (PENDING drift), the live rows
// have no mirror entry and can only be found by re-deriving their names
// while the reservation and room linkage still exists.
func (p *Provisioner) RevokeAllForCustomer(ctx context.Context, customerID string) ([]string, error) {
	accounts, err := p.mirror.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	usernames := make([]string, 0, len(accounts)+1)
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			usernames = append(usernames, u)
		}
	}
	for _, a := range accounts {
		add(a.Username)
	}
	reservations, err := p.marker.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for _, res := range reservations {
		if res.AccessGroupID == nil {
			continue
		}
		for _, u := range utils.ReservationUsernames(res.RoomNumber, res.GuestCount) {
			add(u)
		}
	}
	// The standalone username is included even without a mirror row
	// (absent rows count as revoked), unless the mirror shows it belongs
	// to a different owner.
	standalone := utils.CustomerUsername(customerID)
	foreign, err := p.mirror.OwnedByAnother(ctx, standalone, customerID)
	if err != nil {
		return nil, err
	}
	if !foreign {
		add(standalone)
	}
	if err := p.RevokeByUsernames(ctx, usernames); err != nil {
		return nil, err
	}
	return usernames, nil
}

// RevokeByUsernames deletes the accounts from both stores, treating
// already-absent rows as success.  Each store is attempted even if the
// other fails; the first error is returned so callers can decide whether
// to surface it (explicit revocation) or merely log it (the sweep, where
// occupancy ending must not be blocked by an authentication-store outage).
func (p *Provisioner) RevokeByUsernames(ctx context.Context, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	storeErr := p.store.DeleteByUsernames(ctx, usernames)
	if storeErr != nil {
		log.Printf("provisioner: auth store revoke failed for %v: %v", usernames, storeErr)
	}
	if err := p.mirror.DeleteByUsernames(ctx, usernames); err != nil {
		log.Printf("provisioner: mirror revoke failed for %v: %v", usernames, err)
		if storeErr == nil {
			storeErr = err
		}
	}
	return storeErr
}
