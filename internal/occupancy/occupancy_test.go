package occupancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func window(status string, in, out time.Time) Window {
	return Window{Status: status, CheckIn: in, CheckOut: out}
}

func TestActiveInclusiveBounds(t *testing.T) {
	in := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	out := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	windows := []Window{window("CHECKED_IN", in, out)}

	assert.True(t, Active(in, windows), "check-in instant is occupied")
	assert.True(t, Active(out, windows), "check-out instant is occupied")
	assert.True(t, Active(in.Add(24*time.Hour), windows))
	assert.False(t, Active(in.Add(-time.Second), windows))
	assert.False(t, Active(out.Add(time.Second), windows))
}

func TestActiveIgnoresNonCheckedIn(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	in := now.Add(-time.Hour)
	out := now.Add(time.Hour)

	for _, status := range []string{"PENDING", "CHECKED_OUT", "CANCELED"} {
		assert.False(t, Active(now, []Window{window(status, in, out)}), status)
	}
}

func TestActiveAnyWindowSuffices(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	windows := []Window{
		window("CHECKED_OUT", now.Add(-48*time.Hour), now.Add(-24*time.Hour)),
		window("CHECKED_IN", now.Add(-time.Hour), now.Add(time.Hour)),
		window("CANCELED", now.Add(-time.Hour), now.Add(time.Hour)),
	}
	assert.True(t, Active(now, windows))
	assert.False(t, Active(now, nil), "no windows means not occupied")
}
