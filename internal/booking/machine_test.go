package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/v0xg/teetime/internal/config"
	"github.com/v0xg/teetime/internal/interact"
	"github.com/v0xg/teetime/internal/locator"
	"github.com/v0xg/teetime/internal/roster"
	"github.com/v0xg/teetime/internal/surface"
	"github.com/v0xg/teetime/internal/surface/surfacetest"
)

var (
	target  = time.Date(2026, time.October, 20, 8, 0, 0, 0, time.UTC)
	members = []string{"Amor, Joe", "Crovitz, Mat", "Wagner, Robert", "Coley, David"}
	creds   = config.Credentials{Username: "12345", Secret: "hunter2"}
)

type steps struct{ names []string }

func (s *steps) Capture(_ context.Context, step string) { s.names = append(s.names, step) }

type fixture struct {
	page  *surfacetest.Page
	m     *Machine
	logs  *observer.ObservedLogs
	steps *steps
}

// newFixture stages a club site where every control of the workflow is
// present. Slots start unavailable; tests open the ones they need.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	page := surfacetest.New()
	for _, l := range []locator.Locator{
		loginEntry, identityField, secretField, signIn, logoutControl,
		golfMenu, teeTimeItem, calendarOpener, dayCell(target), dateDisplay(target),
		bookNow, roster.AddParticipant, roster.SearchField,
	} {
		page.Set(l, &surfacetest.Element{})
	}
	page.Set(teeTimeTitle, &surfacetest.Element{Text: "Book a Tee Time"})
	for n := 1; n <= roster.MaxPartySize; n++ {
		page.Set(partySizeOption(n), &surfacetest.Element{
			OnClick: func(p *surfacetest.Page) { p.Set(partySizeActive(n), &surfacetest.Element{}) },
		})
	}
	for _, name := range append(members, "Extra, Eddie") {
		page.Set(roster.Suggestion(name), &surfacetest.Element{
			OnClick: func(p *surfacetest.Page) { p.Set(roster.EnrolledField(name), &surfacetest.Element{}) },
		})
	}

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	ui := interact.New(page, log, time.Millisecond)
	rec := &steps{}
	sess := &Session{Credentials: creds, Surface: page}
	m := New(sess, ui, roster.New(ui, log, 5*time.Millisecond, 100*time.Millisecond), Options{
		HomeURL:      "https://club.example/",
		Timeout:      100 * time.Millisecond,
		ProbeTimeout: 10 * time.Millisecond,
		Recorder:     rec,
	}, log)
	return &fixture{page: page, m: m, logs: logs, steps: rec}
}

func (f *fixture) openSlot(label string) {
	f.page.Set(reserveButton(label), &surfacetest.Element{})
}

func TestRunBooksFirstAvailableSlot(t *testing.T) {
	f := newFixture(t)
	f.openSlot("08:30")
	f.openSlot("08:40")

	res, err := f.m.Run(context.Background(), Request{
		Date:    target,
		Times:   []string{"08:20", "08:30", "08:40"},
		Players: members,
	})
	require.NoError(t, err)

	assert.True(t, res.Booked)
	assert.Equal(t, "08:30", res.Slot)
	assert.Equal(t, members, res.Party)
	assert.Equal(t, StateLoggedOut, res.State)

	assert.Equal(t, 1, f.page.Count("click", reserveButton("08:30")))
	assert.Equal(t, 0, f.page.Count("hover", reserveButton("08:40")), "no slot is attempted after a claim")
	assert.Equal(t, 1, f.page.Count("click", partySizeOption(4)))
	assert.Equal(t, 1, f.page.Count("click", bookNow))
	assert.Equal(t, 1, f.logs.FilterMessage("tee time not available").Len())

	assert.Equal(t, []string{
		"home", "logged-in", "on-booking-menu", "date-selected",
		"slot-claimed", "submitted", "logged-out",
	}, f.steps.names)
}

func TestRunWorkflowOrder(t *testing.T) {
	f := newFixture(t)
	f.openSlot("08:20")

	_, err := f.m.Run(context.Background(), Request{Date: target, Times: []string{"08:20"}, Players: members[:1]})
	require.NoError(t, err)

	var clicks []string
	for _, c := range f.page.Calls() {
		if c.Op == "click" {
			clicks = append(clicks, c.Locator)
		}
	}
	assert.Equal(t, []string{
		loginEntry.String(), identityField.String(), secretField.String(), signIn.String(),
		teeTimeItem.String(),
		calendarOpener.String(), dayCell(target).String(),
		reserveButton("08:20").String(),
		partySizeOption(1).String(),
		roster.AddParticipant.String(), roster.SearchField.String(), roster.Suggestion("Amor, Joe").String(),
		bookNow.String(),
		logoutControl.String(),
	}, clicks)

	assert.Equal(t, 1, f.page.Count("hover", golfMenu))
}

func TestLoginTypesCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Login(context.Background()))

	typed := map[string]string{}
	for _, c := range f.page.Calls() {
		if c.Op == "type" {
			typed[c.Locator] = c.Text
		}
	}
	assert.Equal(t, "12345", typed[identityField.String()])
	assert.Equal(t, "hunter2", typed[secretField.String()])
	assert.Equal(t, StateLoggedIn, f.m.State())
}

func TestRunLoginFailureStopsRun(t *testing.T) {
	f := newFixture(t)
	f.page.Remove(logoutControl)
	f.openSlot("08:20")

	res, err := f.m.Run(context.Background(), Request{Date: target, Times: []string{"08:20"}, Players: members})
	require.Error(t, err)
	assert.True(t, interact.IsTimeout(err))
	assert.Equal(t, StateStart, res.State)
	assert.Equal(t, 0, f.page.Count("hover", golfMenu))
	assert.Equal(t, "failed", f.steps.names[len(f.steps.names)-1])
}

func TestRunNoSlotStillLogsOut(t *testing.T) {
	f := newFixture(t)

	res, err := f.m.Run(context.Background(), Request{
		Date:    target,
		Times:   []string{"08:20", "08:30"},
		Players: members,
	})
	require.NoError(t, err)

	assert.False(t, res.Booked)
	assert.Empty(t, res.Slot)
	assert.Nil(t, res.Party)
	assert.Equal(t, StateLoggedOut, res.State)
	assert.Equal(t, 0, f.page.Count("click", bookNow))
	assert.Equal(t, 1, f.page.Count("click", logoutControl))
	assert.Equal(t, 2, f.logs.FilterMessage("tee time not available").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("unable to locate any available times for the requested date").Len())
	assert.Contains(t, f.steps.names, "no-slot-available")
}

func TestRunDateClosedAbortsBeforeScan(t *testing.T) {
	f := newFixture(t)
	f.openSlot("08:20")
	f.page.Set(dateClosed, &surfacetest.Element{Text: "Tee times are not open for this date"})

	res, err := f.m.Run(context.Background(), Request{Date: target, Times: []string{"08:20"}, Players: members})
	require.Error(t, err)

	assert.True(t, IsFatalAbort(err))
	var de *DateClosedError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, target, de.Date)

	assert.Equal(t, StateOnBookingMenu, res.State)
	assert.Equal(t, 0, f.page.Count("hover", reserveButton("08:20")))
	assert.Equal(t, 0, f.page.Count("click", roster.AddParticipant))
	assert.Equal(t, 0, f.page.Count("click", logoutControl))
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage(err.Error()).Len())
}

func TestSubmitCapsPartySize(t *testing.T) {
	f := newFixture(t)
	f.openSlot("08:20")
	players := append(append([]string(nil), members...), "Extra, Eddie")

	res, err := f.m.Run(context.Background(), Request{Date: target, Times: []string{"08:20"}, Players: players})
	require.NoError(t, err)

	assert.Equal(t, members, res.Party)
	assert.Equal(t, 1, f.page.Count("click", partySizeOption(4)))
	assert.Equal(t, 0, f.page.Count("click", roster.Suggestion("Extra, Eddie")))
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.WarnLevel).FilterField(zap.Int("requested", 5)).Len())
}

func TestRunRosterFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.openSlot("08:20")
	// Selecting the suggestion never puts the player on the roster.
	f.page.Set(roster.Suggestion("Amor, Joe"), &surfacetest.Element{})

	res, err := f.m.Run(context.Background(), Request{Date: target, Times: []string{"08:20"}, Players: members})
	var ve *roster.VerificationError
	require.ErrorAs(t, err, &ve)
	assert.False(t, res.Booked)
	assert.Equal(t, StateSlotClaimed, res.State)
	assert.Equal(t, 0, f.page.Count("click", bookNow))
}

func TestRequestValidate(t *testing.T) {
	ok := Request{Date: target, Times: []string{"08:20"}, Players: members}
	assert.NoError(t, ok.Validate())

	for name, r := range map[string]Request{
		"no date":    {Times: ok.Times, Players: ok.Players},
		"no times":   {Date: target, Players: ok.Players},
		"no players": {Date: target, Times: ok.Times},
	} {
		t.Run(name, func(t *testing.T) {
			err := r.Validate()
			assert.True(t, config.IsError(err))
		})
	}
}

func TestDayCellUsesZeroBasedMonth(t *testing.T) {
	assert.Equal(t,
		`//td[@data-handler="selectDay"][@data-month="9"][@data-year="2026"]/a[normalize-space(text())="20"]`,
		dayCell(target).String())
	assert.Equal(t, `//input[@readonly="readonly"][@value="10/20/2026"]`, dateDisplay(target).String())
}

func TestWithSessionClosesOnce(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		fn      func(ctx context.Context, s *Session) error
		wantErr error
	}{
		{name: "success", fn: func(context.Context, *Session) error { return nil }},
		{name: "error", fn: func(context.Context, *Session) error { return boom }, wantErr: boom},
		{name: "explicit close", fn: func(_ context.Context, s *Session) error { return s.Close() }},
		{name: "fatal abort", fn: func(context.Context, *Session) error { return &DateClosedError{Date: target} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := surfacetest.New()
			err := WithSession(context.Background(), creds, func(context.Context) (surface.Surface, error) {
				return page, nil
			}, tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, page.Closed())
		})
	}
}

func TestWithSessionClosesOnPanic(t *testing.T) {
	page := surfacetest.New()
	assert.Panics(t, func() {
		_ = WithSession(context.Background(), creds, func(context.Context) (surface.Surface, error) {
			return page, nil
		}, func(context.Context, *Session) error { panic("unexpected") })
	})
	assert.Equal(t, 1, page.Closed())
}

func TestWithSessionLaunchFailure(t *testing.T) {
	called := false
	err := WithSession(context.Background(), creds, func(context.Context) (surface.Surface, error) {
		return nil, errors.New("no chrome")
	}, func(context.Context, *Session) error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)
}
