// Package occupancy derives whether an entity (room or customer) is
// currently occupied from its reservation time windows.  The evaluation is
// a pure function of the supplied clock value and windows; callers decide
// where the windows come from and what to do with a state flip.
package occupancy

import (
	"time"

	"github.com/iliyamo/hotel-guest-access/internal/model"
)

// Window is the minimal view of a reservation needed to evaluate
// occupancy: its status and its check-in/check-out bounds.
type Window struct {
	Status   string    // reservation status (see model constants)
	CheckIn  time.Time // start of the occupancy window (UTC)
	CheckOut time.Time // end of the occupancy window (UTC)
}

// Active reports whether any window grants occupancy at the given instant.
// A window counts only when its status is CHECKED_IN and the instant lies
// inside [CheckIn, CheckOut], inclusive on both ends.  The inclusive
// bounds match check-in/out with time-of-day semantics: access is granted
// at exactly the check-in moment and revoked only after the check-out
// moment has fully passed.
func Active(now time.Time, windows []Window) bool {
	for _, w := range windows {
		if w.Status != model.ReservationCheckedIn {
			continue
		}
		if now.Before(w.CheckIn) || now.After(w.CheckOut) {
			continue
		}
		return true
	}
	return false
}
