package conversation

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festbot/core/telegram/state"
	"festbot/internal/content"
	"festbot/internal/schedule"
)

const (
	user     int64 = 1001
	schedLbl       = "What's on now?"
)

type fixture struct {
	machine *Machine
	store   state.Store
	content *content.Store
	now     time.Time
}

func newFixture(t *testing.T, events []schedule.Event) *fixture {
	t.Helper()
	cs, err := content.New([]content.Section{
		{Label: schedLbl},
		{Label: "Food", Text: "*Food court* is next to the main stage"},
		{Label: "Map", Text: "Gate B, then left"},
	}, events, schedLbl)
	require.NoError(t, err)

	f := &fixture{
		store:   state.NewMemoryStore(),
		content: cs,
		now:     time.Date(2024, 7, 6, 10, 15, 0, 0, time.UTC),
	}
	ids := 0
	f.machine, err = New(Options{
		Store:    f.store,
		Content:  cs,
		Now:      func() time.Time { return f.now },
		Location: time.UTC,
		NewConversationID: func() string {
			ids++
			return fmt.Sprintf("conv-%d", ids)
		},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) send(t *testing.T, in Inbound) Result {
	t.Helper()
	if in.UserID == 0 {
		in.UserID = user
	}
	res, err := f.machine.Handle(context.Background(), in)
	require.NoError(t, err)
	return res
}

func text(s string) Inbound    { return Inbound{Kind: KindText, Text: s} }
func command(s string) Inbound { return Inbound{Kind: KindCommand, Text: s} }

func TestNewRequiresStores(t *testing.T) {
	cs, err := content.New(nil, nil, "")
	require.NoError(t, err)

	_, err = New(Options{Content: cs})
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = New(Options{Store: state.NewMemoryStore()})
	assert.ErrorIs(t, err, ErrNilContent)
}

func TestStartShowsAllSections(t *testing.T) {
	f := newFixture(t, nil)

	res := f.send(t, Inbound{Kind: KindCommand, Text: "/start", DisplayName: "Ann Lee"})
	assert.Equal(t, state.StateIdle, res.From)
	assert.Equal(t, state.StateAwaitingSection, res.To)
	assert.Equal(t, "conv-1", res.ConversationID)

	require.Len(t, res.Replies, 1)
	r := res.Replies[0]
	assert.Equal(t, KeyboardShow, r.Keyboard)
	assert.Equal(t, []string{schedLbl, "Food", "Map"}, r.Options)
	assert.Contains(t, r.Text, "Ann Lee")
	assert.Contains(t, r.Text, DefaultMessages().Prompt)

	sess := f.store.Get(user)
	assert.Equal(t, state.StateAwaitingSection, sess.State)
	assert.Equal(t, "conv-1", sess.ConversationID)
}

func TestStartWithoutNameAndFromAnyState(t *testing.T) {
	f := newFixture(t, nil)
	res := f.send(t, command("/start"))
	assert.Equal(t, DefaultMessages().GreetingAnon+"\n"+DefaultMessages().Prompt, res.Replies[0].Text)

	f.send(t, text("Food"))
	res = f.send(t, command("/start@festbot"))
	assert.Equal(t, state.StateAwaitingSection, res.From)
	assert.Equal(t, state.StateAwaitingSection, res.To)
	assert.Equal(t, "conv-2", res.ConversationID)
	assert.Empty(t, f.store.Get(user).LastSection)
}

func TestSelectingSectionReturnsStoredText(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, command("/start"))

	for _, label := range f.content.Labels() {
		if f.content.IsSchedule(label) {
			continue
		}
		want, err := f.content.SectionText(label)
		require.NoError(t, err)

		res := f.send(t, text(label))
		assert.Equal(t, state.StateAwaitingSection, res.To)
		require.Len(t, res.Replies, 1)
		assert.Equal(t, want, res.Replies[0].Text)
		assert.True(t, res.Replies[0].Markdown)
		assert.True(t, res.Replies[0].Quote)
		assert.Equal(t, label, f.store.Get(user).LastSection)
	}
}

func TestUnknownSectionIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, command("/start"))
	f.send(t, text("Map"))
	before := f.store.Get(user)

	res := f.send(t, text("Parking"))
	assert.Equal(t, state.StateAwaitingSection, res.From)
	assert.Equal(t, state.StateAwaitingSection, res.To)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, DefaultMessages().Rejection, res.Replies[0].Text)
	assert.Equal(t, KeyboardNone, res.Replies[0].Keyboard)
	assert.Equal(t, before, f.store.Get(user))

	res = f.send(t, command("/help"))
	require.Len(t, res.Replies, 1)
	assert.Equal(t, DefaultMessages().Rejection, res.Replies[0].Text)
}

func TestScheduleSectionHappeningNow(t *testing.T) {
	f := newFixture(t, []schedule.Event{
		{At: schedule.Clock{Hour: 10, Minute: 0}, Description: "Keynote"},
		{At: schedule.Clock{Hour: 11, Minute: 0}, Description: "Workshop"},
	})
	f.send(t, command("/start"))

	res := f.send(t, text(schedLbl))
	require.Len(t, res.Replies, 1)
	assert.Equal(t, "Great! Happening now: _Keynote_", res.Replies[0].Text)
	assert.True(t, res.Replies[0].Markdown)
	assert.Equal(t, state.StateAwaitingSection, res.To)
	assert.Equal(t, schedLbl, f.store.Get(user).LastSection)
}

func TestScheduleSectionFestivalOver(t *testing.T) {
	f := newFixture(t, []schedule.Event{
		{At: schedule.Clock{Hour: 10, Minute: 0}, Description: "Keynote"},
	})
	f.now = time.Date(2024, 7, 6, 23, 59, 0, 0, time.UTC)
	f.send(t, command("/start"))

	res := f.send(t, text(schedLbl))
	require.Len(t, res.Replies, 1)
	assert.Equal(t, DefaultMessages().FestivalOver, res.Replies[0].Text)
}

func TestScheduleUsesFestivalTimeZone(t *testing.T) {
	f := newFixture(t, []schedule.Event{
		{At: schedule.Clock{Hour: 13, Minute: 0}, Description: "Concert"},
	})
	f.machine.loc = time.FixedZone("UTC+3", 3*60*60)
	f.send(t, command("/start"))

	res := f.send(t, text(schedLbl))
	assert.Equal(t, "Great! Happening now: _Concert_", res.Replies[0].Text)
}

func TestCancelFromAwaiting(t *testing.T) {
	for _, in := range []Inbound{
		command("/cancel"),
		text("cancel please"),
		text("Thanks a lot!"),
		text("Спасибо!"),
		text("отмена"),
	} {
		t.Run(in.Text, func(t *testing.T) {
			f := newFixture(t, nil)
			f.send(t, command("/start"))

			res := f.send(t, in)
			assert.Equal(t, state.StateAwaitingSection, res.From)
			assert.Equal(t, state.StateIdle, res.To)
			assert.Equal(t, "conv-1", res.ConversationID)
			require.Len(t, res.Replies, 1)
			assert.Equal(t, DefaultMessages().Farewell, res.Replies[0].Text)
			assert.Equal(t, KeyboardRemove, res.Replies[0].Keyboard)
			assert.False(t, f.store.Get(user).Active())
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestCancelWhenIdleIsSilent(t *testing.T) {
	f := newFixture(t, nil)
	res := f.send(t, command("/cancel"))
	assert.Empty(t, res.Replies)
	assert.Equal(t, state.StateIdle, res.To)

	res = f.send(t, text("thanks"))
	assert.Empty(t, res.Replies)
}

func TestCustomCancelPattern(t *testing.T) {
	f := newFixture(t, nil)
	f.machine.cancel = regexp.MustCompile(`(?i)^bye$`)
	f.send(t, command("/start"))

	res := f.send(t, text("thanks"))
	assert.Equal(t, DefaultMessages().Rejection, res.Replies[0].Text)

	res = f.send(t, text("Bye"))
	assert.Equal(t, state.StateIdle, res.To)
}

func TestMediaGetsUnknownNotice(t *testing.T) {
	for _, kind := range []Kind{KindPhoto, KindDocument, KindSticker} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t, nil)

			res := f.send(t, Inbound{Kind: kind})
			require.Len(t, res.Replies, 1)
			assert.Equal(t, DefaultMessages().Unknown, res.Replies[0].Text)
			assert.Equal(t, state.StateIdle, res.To)

			f.send(t, command("/start"))
			res = f.send(t, Inbound{Kind: kind, Text: "caption"})
			require.Len(t, res.Replies, 1)
			assert.Equal(t, DefaultMessages().Unknown, res.Replies[0].Text)
			assert.Equal(t, state.StateAwaitingSection, res.To)
		})
	}
}

func TestIgnoredInput(t *testing.T) {
	f := newFixture(t, nil)

	res := f.send(t, text("Food"))
	assert.Empty(t, res.Replies)
	assert.Equal(t, state.StateIdle, res.To)

	f.send(t, command("/start"))
	res = f.send(t, Inbound{Kind: KindOther})
	assert.Empty(t, res.Replies)
	assert.Equal(t, state.StateAwaitingSection, res.To)
}

func TestUsersAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	f.send(t, Inbound{UserID: 1, Kind: KindCommand, Text: "/start"})

	res := f.send(t, Inbound{UserID: 2, Kind: KindText, Text: "Food"})
	assert.Empty(t, res.Replies)
	assert.Equal(t, state.StateAwaitingSection, f.store.Get(1).State)
	assert.Equal(t, state.StateIdle, f.store.Get(2).State)
}

func TestCustomMessages(t *testing.T) {
	f := newFixture(t, nil)
	f.machine.messages = Messages{Greeting: "Привет, {name}!", Farewell: "Пока"}.WithDefaults()

	res := f.send(t, Inbound{Kind: KindCommand, Text: "/start", DisplayName: "Олег"})
	assert.Equal(t, "Привет, Олег!\n"+DefaultMessages().Prompt, res.Replies[0].Text)

	res = f.send(t, command("/cancel"))
	assert.Equal(t, "Пока", res.Replies[0].Text)
}

func TestConcurrentUsers(t *testing.T) {
	f := newFixture(t, nil)
	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ctx := context.Background()
			_, _ = f.machine.Handle(ctx, Inbound{UserID: id, Kind: KindCommand, Text: "/start"})
			for j := 0; j < 20; j++ {
				_, _ = f.machine.Handle(ctx, Inbound{UserID: id, Kind: KindText, Text: "Map"})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, f.store.Len())
	for i := int64(1); i <= 20; i++ {
		assert.Equal(t, "Map", f.store.Get(i).LastSection)
	}
	assert.Empty(t, f.machine.locks.locks)
}

func TestCommandName(t *testing.T) {
	tests := map[string]string{
		"/start":               "start",
		"/Start@festbot":       "start",
		"/start deep-link":     "start",
		"  /cancel  ":          "cancel",
		"start":                "",
		"":                     "",
		"/start@festbot extra": "start",
	}
	for in, want := range tests {
		assert.Equal(t, want, CommandName(in), in)
	}
	assert.Equal(t, "", Inbound{Kind: KindText, Text: "/start"}.Command())
}

func TestMarkdownPhrasesAreEscaped(t *testing.T) {
	f := newFixture(t, nil)
	f.machine.messages.FestivalOver = "That's all_folks"
	f.send(t, command("/start"))

	res := f.send(t, text(schedLbl))
	require.Len(t, res.Replies, 1)
	assert.Equal(t, `That's all\_folks`, res.Replies[0].Text)
	assert.True(t, res.Replies[0].Markdown)
}

func TestHappeningNowPrefixIsEscaped(t *testing.T) {
	f := newFixture(t, []schedule.Event{
		{At: schedule.Clock{Hour: 10, Minute: 0}, Description: "Keynote"},
	})
	f.machine.messages.HappeningNow = "*Now* on [stage]:"
	f.send(t, command("/start"))

	res := f.send(t, text(schedLbl))
	require.Len(t, res.Replies, 1)
	assert.Equal(t, `\*Now\* on \[stage]: _Keynote_`, res.Replies[0].Text)
}
