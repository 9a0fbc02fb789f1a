// Package roster enrolls named participants into the booking form currently
// open in the browser. Enrollment state is never cached: each check queries
// the live page.
package roster

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/teetime/internal/interact"
	"github.com/v0xg/teetime/internal/locator"
)

// MaxPartySize is the most participants the site accepts per booking.
const MaxPartySize = 4

// Roster form controls.
var (
	AddParticipant = locator.Of(`(//a/i[contains(@class, "fa-plus")])[1]`)
	SearchField    = locator.Of(`//input[@aria-autocomplete="listbox"][not(@disabled)]`)
)

// EnrolledField locates the form input holding an enrolled participant.
func EnrolledField(name string) locator.Locator {
	return locator.Format(`//input[@value=%s]`, name)
}

// Suggestion locates the autocomplete entry for name.
func Suggestion(name string) locator.Locator {
	return locator.Format(`//li[@data-item-label=%s]`, name)
}


// VerificationError means a participant was added but could not be seen on
// the roster afterwards. The booking cannot proceed.
type VerificationError struct {
	Name string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("unable to validate %q is on the roster", e.Name)
}

// Manager fills the roster through a Poller.
type Manager struct {
	ui  *interact.Poller
	log *zap.Logger
	// probe bounds the "already enrolled?" check, full every other wait.
	probe time.Duration
	full  time.Duration
}

func New(ui *interact.Poller, log *zap.Logger, probe, full time.Duration) *Manager {
	return &Manager{ui: ui, log: log, probe: probe, full: full}
}

// PartySize is the number of participants that will actually be submitted
// for a request of n names.
func PartySize(n int) int {
	return min(n, MaxPartySize)
}

// IsEnrolled reports whether name is on the roster, waiting at most deadline.
func (m *Manager) IsEnrolled(ctx context.Context, name string, deadline time.Duration) (bool, error) {
	return m.ui.Exists(ctx, EnrolledField(name), deadline)
}

// Enroll adds name to the roster unless it is already there.
func (m *Manager) Enroll(ctx context.Context, name string) error {
	enrolled, err := m.IsEnrolled(ctx, name, m.probe)
	if err != nil {
		return err
	}
	if enrolled {
		m.log.Info("player already on the roster", zap.String("player", name))
		return nil
	}

	if _, err := m.ui.Click(ctx, AddParticipant, m.full); err != nil {
		return fmt.Errorf("add player %q: %w", name, err)
	}
	if err := m.ui.Fill(ctx, SearchField, name, m.full); err != nil {
		return fmt.Errorf("search player %q: %w", name, err)
	}
	if _, err := m.ui.Click(ctx, Suggestion(name), m.full); err != nil {
		return fmt.Errorf("select player %q: %w", name, err)
	}

	enrolled, err = m.IsEnrolled(ctx, name, m.full)
	if err != nil {
		return err
	}
	if !enrolled {
		return &VerificationError{Name: name}
	}
	m.log.Info("player added to the roster", zap.String("player", name))
	return nil
}

// EnrollAll enrolls names in order, keeping only the first MaxPartySize.
func (m *Manager) EnrollAll(ctx context.Context, names []string) error {
	if len(names) > MaxPartySize {
		m.log.Warn(fmt.Sprintf("site allows a maximum of %d players, but discovered %d; only the first %d will be added",
			MaxPartySize, len(names), MaxPartySize),
			zap.Int("max", MaxPartySize),
			zap.Int("requested", len(names)),
		)
		names = names[:MaxPartySize]
	}
	for _, name := range names {
		if err := m.Enroll(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
