package roster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/v0xg/teetime/internal/interact"
	"github.com/v0xg/teetime/internal/surface/surfacetest"
)

const (
	probe = 10 * time.Millisecond
	full  = 50 * time.Millisecond
)

func setup(t *testing.T) (*Manager, *surfacetest.Page, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	page := surfacetest.New()
	page.Set(AddParticipant, &surfacetest.Element{})
	page.Set(SearchField, &surfacetest.Element{})
	return New(interact.New(page, log, time.Millisecond), log, probe, full), page, logs
}

// directory makes each name selectable from the search suggestions; picking
// a suggestion puts the name on the roster.
func directory(page *surfacetest.Page, names ...string) {
	for _, name := range names {
		page.Set(Suggestion(name), &surfacetest.Element{
			OnClick: func(p *surfacetest.Page) {
				p.Set(EnrolledField(name), &surfacetest.Element{Value: name})
			},
		})
	}
}

func enrolledOrder(page *surfacetest.Page) []string {
	var out []string
	for _, c := range page.Calls() {
		if c.Op == "type" && c.Locator == SearchField.String() {
			out = append(out, c.Text)
		}
	}
	return out
}

func TestEnrollAddsPlayer(t *testing.T) {
	m, page, _ := setup(t)
	directory(page, "Amor, Joe")

	require.NoError(t, m.Enroll(context.Background(), "Amor, Joe"))
	assert.Equal(t, 1, page.Count("click", AddParticipant))
	assert.Equal(t, 1, page.Count("click", Suggestion("Amor, Joe")))
	assert.Equal(t, []string{"Amor, Joe"}, enrolledOrder(page))
}

func TestEnrollAlreadyEnrolledIsNoop(t *testing.T) {
	m, page, logs := setup(t)
	page.Set(EnrolledField("Amor, Joe"), &surfacetest.Element{})

	require.NoError(t, m.Enroll(context.Background(), "Amor, Joe"))
	assert.Equal(t, 0, page.Count("click", AddParticipant))
	assert.Empty(t, enrolledOrder(page))
	assert.Equal(t, 1, logs.FilterMessage("player already on the roster").Len())
}

func TestEnrollVerificationFailure(t *testing.T) {
	m, page, _ := setup(t)
	// The suggestion is clickable but selecting it never updates the roster.
	page.Set(Suggestion("Ghost, Casper"), &surfacetest.Element{})

	err := m.Enroll(context.Background(), "Ghost, Casper")
	var ve *VerificationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Ghost, Casper", ve.Name)
}

func TestEnrollMissingSuggestionFails(t *testing.T) {
	m, _, _ := setup(t)

	err := m.Enroll(context.Background(), "Nobody, Known")
	require.Error(t, err)
	assert.True(t, interact.IsTimeout(err))
}

func TestEnrollQuotedName(t *testing.T) {
	m, page, _ := setup(t)
	name := `O'Brien "Pat"`
	directory(page, name)

	require.NoError(t, m.Enroll(context.Background(), name))
	assert.Equal(t, []string{name}, enrolledOrder(page))
}

func TestEnrollAllTruncatesToMaxPartySize(t *testing.T) {
	m, page, logs := setup(t)
	names := []string{"Amor, Joe", "Crovitz, Mat", "Wagner, Robert", "Coley, David", "Extra, Eddie", "Spare, Sam"}
	directory(page, names...)

	require.NoError(t, m.EnrollAll(context.Background(), names))
	assert.Equal(t, names[:MaxPartySize], enrolledOrder(page))
	assert.Equal(t, 0, page.Count("click", Suggestion("Extra, Eddie")))

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "discovered 6")
	assert.EqualValues(t, 6, warnings[0].ContextMap()["requested"])
}

func TestEnrollAllSkipsEnrolledAndKeepsOrder(t *testing.T) {
	m, page, logs := setup(t)
	directory(page, "Amor, Joe", "Coley, David")
	page.Set(EnrolledField("Crovitz, Mat"), &surfacetest.Element{})

	require.NoError(t, m.EnrollAll(context.Background(), []string{"Amor, Joe", "Crovitz, Mat", "Coley, David"}))
	assert.Equal(t, []string{"Amor, Joe", "Coley, David"}, enrolledOrder(page))
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestEnrollAllStopsOnFirstFailure(t *testing.T) {
	m, page, _ := setup(t)
	directory(page, "Coley, David")

	err := m.EnrollAll(context.Background(), []string{"Nobody, Known", "Coley, David"})
	require.Error(t, err)
	assert.Equal(t, 0, page.Count("click", Suggestion("Coley, David")))
}

func TestPartySize(t *testing.T) {
	assert.Equal(t, 0, PartySize(0))
	assert.Equal(t, 3, PartySize(3))
	assert.Equal(t, MaxPartySize, PartySize(9))
}
