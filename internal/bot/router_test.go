package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/worktime-bot/internal/bot/handlers"
	"github.com/Proton-105/worktime-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/worktime-bot/internal/errors"
	"github.com/Proton-105/worktime-bot/internal/i18n"
	"github.com/Proton-105/worktime-bot/internal/idempotency"
	"github.com/Proton-105/worktime-bot/internal/lock"
	"github.com/Proton-105/worktime-bot/internal/report"
	"github.com/Proton-105/worktime-bot/internal/repository/memory"
	"github.com/Proton-105/worktime-bot/internal/session"
	"github.com/Proton-105/worktime-bot/internal/state"
	"github.com/Proton-105/worktime-bot/internal/testutil"
	"github.com/Proton-105/worktime-bot/internal/user"
	"github.com/Proton-105/worktime-bot/pkg/logger"
)

const userID int64 = 4242

type testBot struct {
	router *Router
	deps   handlers.Deps
	now    time.Time
	nextID int
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(t *testing.T, idem idempotency.Manager) *testBot {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)

	log := quietLogger()
	store := memory.New()
	locker := lock.NewMemoryLocker(time.Second)
	catalog, err := i18n.Load("fi")
	require.NoError(t, err)

	tb := &testBot{now: time.Date(2024, time.March, 5, 8, 0, 0, 0, loc)}
	tb.deps = handlers.Deps{
		Users:    user.NewService(store.Users(), nil, log),
		Sessions: session.NewTracker(store.Logs(), store.Days(), locker, loc, log),
		Reports:  report.NewAggregator(store.Days(), loc, report.Options{}),
		FSM:      state.NewStateMachine(state.NewMemoryStorage(time.Hour), log, locker),
		I18n:     catalog,
		Keyboard: keyboard.NewBuilder(log),
		Log:      log,
		Now:      func() time.Time { return tb.now },
	}
	tb.router = NewRouterFor(tb.deps, errors.NewHandler(log, false), idem, time.Hour, log)

	return tb
}

func (b *testBot) send(t *testing.T, text string) *testutil.FakeContext {
	t.Helper()
	b.nextID++
	c := testutil.NewMessage(b.nextID, userID, text)
	require.NoError(t, b.router.Route(c))
	return c
}

func (b *testBot) press(t *testing.T, data string) *testutil.FakeContext {
	t.Helper()
	b.nextID++
	c := testutil.NewCallback(b.nextID, userID, data)
	require.NoError(t, b.router.Route(c))
	return c
}

func (b *testBot) advance(d time.Duration) {
	b.now = b.now.Add(d)
}

func TestRouter_Registration(t *testing.T) {
	b := newTestBot(t, nil)

	c := b.send(t, "/aloita")
	assert.Equal(t, "Tervetuloa Matti !", c.LastText())
	require.Len(t, c.SentMessages(), 1)
	assert.NotNil(t, c.SentMessages()[0].Markup())

	c = b.send(t, "/register")
	assert.Equal(t, "Olet jo aloittanut botin käytön. Kirjaa tunnit /sisaan, /ulos tai /paiva", c.LastText())
}

func TestRouter_UnregisteredUserIsTurnedAway(t *testing.T) {
	b := newTestBot(t, nil)

	for _, cmd := range []string{"/sisaan", "/ulos", "/paiva 7:30", "/raportti"} {
		c := b.send(t, cmd)
		assert.Equal(t, "Käytä ensin /aloita komentoa", c.LastText(), cmd)
	}
}

func TestRouter_ClockInAndOut(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")

	c := b.send(t, "/sisaan")
	assert.Equal(t, "Sisäänkirjaus lisätty", c.LastText())

	c = b.send(t, "/in")
	assert.Equal(t, "Olet jo kirjannut tänään sisään!", c.LastText())

	b.advance(2*time.Hour + 15*time.Minute)
	c = b.send(t, "/ulos")
	assert.Equal(t, []string{"Uloskirjaus lisätty", "Teit työtä 2 tuntia ja 15 minuuttia!"}, c.SentTexts())

	c = b.send(t, "/out")
	assert.Contains(t, c.LastText(), "unohdit kirjautua sisään")
}

func TestRouter_ClockOutNextDayDiscardsSession(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")
	b.send(t, "/sisaan")

	b.advance(24 * time.Hour)
	c := b.send(t, "/ulos")
	assert.Contains(t, c.LastText(), "aiemmalta päivältä")

	c = b.send(t, "/sisaan")
	assert.Equal(t, "Sisäänkirjaus lisätty", c.LastText())
}

func TestRouter_ManualEntryWithArguments(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")

	c := b.send(t, "/paiva 4.3.2024 3:30")
	assert.Equal(t, "Kirjattu 4.3.2024: 3 tuntia ja 30 minuuttia.", c.LastText())

	c = b.send(t, "/day 7:05")
	assert.Equal(t, "Kirjattu 5.3.2024: 7 tuntia ja 5 minuuttia.", c.LastText())

	c = b.send(t, "/paiva 32.3.2024 1:00")
	assert.Contains(t, c.LastText(), "Virheellinen muoto")

	c = b.send(t, "/paiva 1.3.2024 1:00 extra")
	assert.Equal(t, "Komennon muoto on /paiva [pp.kk.vvvv] <tunnit muodossa hh:mm>", c.LastText())
}

func TestRouter_ManualEntryDialog(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")

	c := b.send(t, "/paiva")
	assert.Contains(t, c.LastText(), "Minkä päivän tunnit kirjataan?")

	// A repeated command restarts the dialog.
	c = b.send(t, "/paiva")
	assert.Contains(t, c.LastText(), "Minkä päivän tunnit kirjataan?")

	c = b.send(t, "not a date")
	assert.Contains(t, c.LastText(), "Virheellinen muoto")

	c = b.send(t, "4.3.2024")
	assert.Contains(t, c.LastText(), "Montako tuntia?")

	c = b.send(t, "6:45")
	assert.Equal(t, "Kirjattu 4.3.2024: 6 tuntia ja 45 minuuttia.", c.LastText())

	c = b.send(t, "/cancel")
	assert.Equal(t, "Ei peruttavaa.", c.LastText())

	// Plain text outside a dialog is ignored.
	c = b.send(t, "hello")
	assert.Empty(t, c.SentTexts())
}

func TestRouter_CancelDialog(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")
	b.send(t, "/paiva")

	c := b.send(t, "/cancel")
	assert.Equal(t, "Kirjaus peruttu.", c.LastText())

	c = b.send(t, "4.3.2024")
	assert.Empty(t, c.SentTexts())
}

func TestRouter_Reports(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")
	b.send(t, "/paiva 5.3.2024 3:30")
	b.send(t, "/paiva 6.3.2024 2:15")

	c := b.send(t, "/raportti")
	assert.Equal(t, "Valitse ajankohta:", c.LastText())
	markup := c.SentMessages()[0].Markup()
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "report:all", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "Maaliskuu 2024", markup.InlineKeyboard[1][0].Text)
	assert.Equal(t, "report:2024-03", markup.InlineKeyboard[1][0].Data)
	assert.Equal(t, "report:cancel", markup.InlineKeyboard[2][0].Data)

	c = b.press(t, "report:all")
	assert.Equal(t, "Kaikki tehdyt työt:\n3/2024 5h 45m", c.LastText())
	assert.Equal(t, 1, c.Responded())

	c = b.press(t, "report:2024-03")
	assert.Equal(t, "Maaliskuu 2024:\n5.3. 3h 30min\n6.3. 2h 15min\nYhteensä: 5h 45min", c.LastText())

	c = b.press(t, "report:2024-04")
	assert.Equal(t, "Ei kirjattuja tunteja.", c.LastText())

	c = b.press(t, "report:cancel")
	assert.True(t, c.Deleted())
	assert.Empty(t, c.SentTexts())
	assert.Equal(t, 1, c.Responded())
}

func TestRouter_UnknownCallbackIsAnswered(t *testing.T) {
	b := newTestBot(t, nil)

	c := b.press(t, "unknown:1")
	assert.Equal(t, 1, c.Responded())
	assert.Empty(t, c.SentTexts())
}

func TestRouter_EnglishSender(t *testing.T) {
	b := newTestBot(t, nil)
	b.send(t, "/aloita")

	b.nextID++
	c := testutil.NewMessage(b.nextID, userID, "/in").WithLanguage("en")
	require.NoError(t, b.router.Route(c))
	assert.Equal(t, "Clocked in", c.LastText())
}

func TestRouter_DuplicateUpdateIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idem := idempotency.NewManager(idempotency.NewRedisStore(client, quietLogger()), quietLogger())
	b := newTestBot(t, idem)

	first := testutil.NewMessage(77, userID, "/aloita")
	require.NoError(t, b.router.Route(first))
	assert.Equal(t, "Tervetuloa Matti !", first.LastText())

	again := testutil.NewMessage(77, userID, "/aloita")
	require.NoError(t, b.router.Route(again))
	assert.Empty(t, again.SentTexts())
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	b := newTestBot(t, nil)
	b.router.RegisterCommand(func(telebot.Context) error { panic("boom") }, "/boom")

	c := b.send(t, "/boom")
	assert.Equal(t, "Sori, nyt meni jotain pieleen (kaaduin)", c.LastText())
}

func TestRouter_RequestContextCarriesCorrelationID(t *testing.T) {
	b := newTestBot(t, nil)

	var ctx context.Context
	b.router.RegisterCommand(func(c telebot.Context) error {
		ctx = handlers.RequestContext(c)
		return nil
	}, "/probe")

	c := testutil.NewMessage(91, userID, "/probe")
	require.NoError(t, b.router.Route(c))
	require.NotNil(t, ctx)
	assert.Equal(t, "upd-91", logger.CorrelationIDFromContext(ctx))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "/paiva 7:30", want: "/paiva", ok: true},
		{text: "/Raportti@worktime_bot", want: "/raportti", ok: true},
		{text: "  /ulos  ", want: "/ulos", ok: true},
		{text: "/", ok: false},
		{text: "7:30", ok: false},
		{text: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := handlers.ParseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}
