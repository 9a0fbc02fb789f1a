// Package booking drives the tee-time reservation workflow:
// login, booking menu, date, slot scan, roster, submit, logout.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/teetime/internal/config"
	"github.com/v0xg/teetime/internal/interact"
	"github.com/v0xg/teetime/internal/roster"
)

// State is a step of the workflow.
type State int

const (
	StateStart State = iota
	StateLoggedIn
	StateOnBookingMenu
	StateDateSelected
	StateSlotClaimed
	StateNoSlotAvailable
	StateSubmitted
	StateLoggedOut
)

var stateNames = [...]string{
	StateStart:           "start",
	StateLoggedIn:        "logged-in",
	StateOnBookingMenu:   "on-booking-menu",
	StateDateSelected:    "date-selected",
	StateSlotClaimed:     "slot-claimed",
	StateNoSlotAvailable: "no-slot-available",
	StateSubmitted:       "submitted",
	StateLoggedOut:       "logged-out",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DateClosedError means the site does not yet accept reservations for the
// requested date. It aborts the whole run.
type DateClosedError struct {
	Date time.Time
}

func (e *DateClosedError) Error() string {
	return fmt.Sprintf("%s is not open for reservations", e.Date.Format("2006-01-02"))
}

// IsFatalAbort reports whether err must end the run with no further steps.
func IsFatalAbort(err error) bool {
	var de *DateClosedError
	return errors.As(err, &de)
}

// Request is what one run tries to book.
type Request struct {
	Date time.Time
	// Times are slot labels in order of preference.
	Times []string
	// Players are enrolled in order; only the first roster.MaxPartySize count.
	Players []string
}

// Validate rejects requests the workflow cannot act on.
func (r Request) Validate() error {
	switch {
	case r.Date.IsZero():
		return &config.Error{Field: "date", Err: errors.New("no target date")}
	case len(r.Times) == 0:
		return &config.Error{Field: "tee-times", Err: errors.New("no tee times requested")}
	case len(r.Players) == 0:
		return &config.Error{Field: "players", Err: errors.New("no players requested")}
	}
	return nil
}

// Result describes how far a run got.
type Result struct {
	State State
	Slot  string
	// Booked is true once the final submit control was clicked. The site's
	// own confirmation is not checked, so a silently rejected submission
	// still reads as booked.
	Booked bool
	Party  []string
}

// Recorder receives a checkpoint after every state change.
type Recorder interface {
	Capture(ctx context.Context, step string)
}

type noRecorder struct{}

func (noRecorder) Capture(context.Context, string) {}

// Options tunes a Machine.
type Options struct {
	HomeURL string
	// Timeout bounds every wait that must succeed.
	Timeout time.Duration
	// ProbeTimeout bounds checks for optional page state.
	ProbeTimeout time.Duration
	Recorder     Recorder
}

// Machine runs the workflow for one session. Steps are never retried; only
// the poll loops inside interact retry.
type Machine struct {
	sess   *Session
	ui     *interact.Poller
	roster *roster.Manager
	opts   Options
	log    *zap.Logger
	state  State
}

func New(sess *Session, ui *interact.Poller, rm *roster.Manager, opts Options, log *zap.Logger) *Machine {
	if opts.Recorder == nil {
		opts.Recorder = noRecorder{}
	}
	return &Machine{sess: sess, ui: ui, roster: rm, opts: opts, log: log}
}

// State returns the last state reached.
func (m *Machine) State() State {
	return m.state
}

func (m *Machine) enter(ctx context.Context, s State) {
	m.log.Debug("state", zap.Stringer("from", m.state), zap.Stringer("to", s))
	m.state = s
	m.opts.Recorder.Capture(ctx, s.String())
}

// Run executes the whole workflow. A missing slot is not an error: the run
// still logs out and returns Booked=false.
func (m *Machine) Run(ctx context.Context, req Request) (res Result, err error) {
	defer func() {
		res.State = m.state
		if err != nil {
			m.opts.Recorder.Capture(ctx, "failed")
		}
	}()

	if err := req.Validate(); err != nil {
		return res, err
	}

	if err := m.sess.Surface.Navigate(ctx, m.opts.HomeURL); err != nil {
		return res, fmt.Errorf("load home page: %w", err)
	}
	m.opts.Recorder.Capture(ctx, "home")

	if err := m.Login(ctx); err != nil {
		return res, fmt.Errorf("login: %w", err)
	}
	if err := m.OpenBookingMenu(ctx); err != nil {
		return res, fmt.Errorf("booking menu: %w", err)
	}
	if err := m.SelectDate(ctx, req.Date); err != nil {
		if IsFatalAbort(err) {
			return res, err
		}
		return res, fmt.Errorf("select date: %w", err)
	}

	slot, booked, err := m.ClaimSlot(ctx, req.Times, req.Players)
	res.Slot, res.Booked = slot, booked
	if booked {
		res.Party = req.Players[:roster.PartySize(len(req.Players))]
	}
	if err != nil {
		return res, fmt.Errorf("book %s: %w", slot, err)
	}

	if err := m.Logout(ctx); err != nil {
		return res, fmt.Errorf("logout: %w", err)
	}
	return res, nil
}

// Login signs in and waits for the logout control to confirm it.
func (m *Machine) Login(ctx context.Context) error {
	full := m.opts.Timeout
	if _, err := m.ui.Click(ctx, loginEntry, full); err != nil {
		return err
	}
	if err := m.ui.Fill(ctx, identityField, m.sess.Credentials.Username, full); err != nil {
		return err
	}
	if err := m.ui.Fill(ctx, secretField, m.sess.Credentials.Secret, full); err != nil {
		return err
	}
	if _, err := m.ui.Click(ctx, signIn, full); err != nil {
		return err
	}
	if _, err := m.ui.Resolve(ctx, logoutControl, full); err != nil {
		return err
	}
	m.log.Info("logged in", zap.String("member", m.sess.Credentials.Username))
	m.enter(ctx, StateLoggedIn)
	return nil
}

// OpenBookingMenu hovers the golf menu and opens the tee time page.
func (m *Machine) OpenBookingMenu(ctx context.Context) error {
	full := m.opts.Timeout
	if _, err := m.ui.MoveTo(ctx, golfMenu, full); err != nil {
		return err
	}
	if _, err := m.ui.Click(ctx, teeTimeItem, full); err != nil {
		return err
	}
	heading, ok, err := m.ui.TextOf(ctx, teeTimeTitle, full)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("page heading %s is gone", teeTimeTitle)
	}
	m.log.Info("opened booking page", zap.String("heading", heading))
	m.enter(ctx, StateOnBookingMenu)
	return nil
}

// SelectDate picks date in the calendar and checks the site will take
// reservations for it. A closed date yields *DateClosedError.
func (m *Machine) SelectDate(ctx context.Context, date time.Time) error {
	full := m.opts.Timeout
	if _, err := m.ui.Click(ctx, calendarOpener, full); err != nil {
		return err
	}
	if _, err := m.ui.Click(ctx, dayCell(date), full); err != nil {
		return err
	}
	if _, err := m.ui.Resolve(ctx, dateDisplay(date), full); err != nil {
		return err
	}

	closed, err := m.ui.Exists(ctx, dateClosed, m.opts.ProbeTimeout)
	if err != nil {
		return err
	}
	if closed {
		err := &DateClosedError{Date: date}
		m.log.Error(err.Error())
		return err
	}
	m.enter(ctx, StateDateSelected)
	return nil
}

// ClaimSlot tries each time label in order and books the first one whose
// reserve control responds within the probe timeout. Later labels are never
// tried once one is claimed. No available slot returns booked=false, nil.
func (m *Machine) ClaimSlot(ctx context.Context, times, players []string) (slot string, booked bool, err error) {
	probe := m.ui.Quiet()
	for _, t := range times {
		if _, err := probe.Click(ctx, reserveButton(t), m.opts.ProbeTimeout); err != nil {
			if interact.IsTimeout(err) || interact.IsAbsent(err) {
				m.log.Warn("tee time not available", zap.String("time", t))
				continue
			}
			return t, false, err
		}

		m.enter(ctx, StateSlotClaimed)
		if err := m.Submit(ctx, players); err != nil {
			return t, false, err
		}
		m.log.Info("successfully booked", zap.String("time", t))
		return t, true, nil
	}

	m.log.Warn("unable to locate any available times for the requested date")
	m.enter(ctx, StateNoSlotAvailable)
	return "", false, nil
}

// Submit sets the party size, fills the roster and clicks "Book Now".
// Success is reported as soon as the click lands.
func (m *Machine) Submit(ctx context.Context, players []string) error {
	full := m.opts.Timeout
	n := roster.PartySize(len(players))
	if _, err := m.ui.Click(ctx, partySizeOption(n), full); err != nil {
		return err
	}
	if _, err := m.ui.Resolve(ctx, partySizeActive(n), full); err != nil {
		return err
	}
	if err := m.roster.EnrollAll(ctx, players); err != nil {
		return err
	}
	if _, err := m.ui.Click(ctx, bookNow, full); err != nil {
		return err
	}
	m.enter(ctx, StateSubmitted)
	return nil
}

// Logout signs out and waits for the login control to come back.
func (m *Machine) Logout(ctx context.Context) error {
	full := m.opts.Timeout
	if _, err := m.ui.Click(ctx, logoutControl, full); err != nil {
		return err
	}
	if _, err := m.ui.Resolve(ctx, loginEntry, full); err != nil {
		return err
	}
	m.log.Info("logged out")
	m.enter(ctx, StateLoggedOut)
	return nil
}
