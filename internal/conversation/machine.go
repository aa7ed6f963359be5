// Package conversation implements the festival menu dialog: a two-state
// machine driven by one transition function over (state, message kind, text).
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"festbot/core/logger"
	"festbot/core/telegram/format"
	"festbot/core/telegram/state"
	"festbot/internal/content"
	"festbot/internal/schedule"
)

const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

var (
	// ErrNilStore is returned by New when no session store is provided.
	ErrNilStore = errors.New("conversation: nil session store")
	// ErrNilContent is returned by New when no content store is provided.
	ErrNilContent = errors.New("conversation: nil content store")
)

// Options configure a Machine. Store and Content are required.
type Options struct {
	Store         state.Store
	Content       *content.Store
	Messages      Messages
	CancelPattern *regexp.Regexp
	// Now supplies wall-clock time; defaults to time.Now.
	Now func() time.Time
	// Location is the festival time zone; defaults to time.Local.
	Location *time.Location
	// NewConversationID mints ids on /start; defaults to random UUIDs.
	NewConversationID func() string
}

// Result describes the outcome of one transition.
type Result struct {
	Replies []Reply
	From    state.State
	To      state.State
	// ConversationID of the session the message belonged to, if any.
	ConversationID string
}

// Machine is the conversation state machine. It is safe for concurrent use;
// messages of the same user are processed one at a time.
type Machine struct {
	store    state.Store
	content  *content.Store
	messages Messages
	cancel   *regexp.Regexp
	now      func() time.Time
	loc      *time.Location
	newID    func() string
	locks    userLocks
}

// New validates options and builds a Machine.
func New(opts Options) (*Machine, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Content == nil {
		return nil, ErrNilContent
	}
	m := &Machine{
		store:    opts.Store,
		content:  opts.Content,
		messages: opts.Messages.WithDefaults(),
		cancel:   opts.CancelPattern,
		now:      opts.Now,
		loc:      opts.Location,
		newID:    opts.NewConversationID,
	}
	if m.cancel == nil {
		m.cancel = regexp.MustCompile(DefaultCancelPattern)
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.NewString() }
	}
	return m, nil
}

// Handle applies the transition for in and commits the user's new session.
// The returned replies must be delivered in order.
func (m *Machine) Handle(ctx context.Context, in Inbound) (Result, error) {
	unlock := m.locks.lock(in.UserID)
	defer unlock()

	sess := m.store.Get(in.UserID)
	from := sess.State
	if !from.Valid() {
		from = state.StateIdle
		sess.State = from
	}

	var (
		res Result
		err error
	)
	switch {
	case in.Command() == CommandStart:
		res = m.start(in, sess)
	case m.isCancel(in):
		res = m.finish(in, sess)
	case in.Kind == KindDocument || in.Kind == KindPhoto || in.Kind == KindSticker:
		res = Result{Replies: []Reply{{Text: escapeMD(m.messages.Unknown), Markdown: true, Quote: true}}}
	case from == state.StateAwaitingSection && (in.Kind == KindText || in.Kind == KindCommand):
		res, err = m.selectSection(in, sess)
	default:
		// Text in idle and unsupported media are ignored.
	}
	if res.From == "" {
		res.From = from
	}
	if res.To == "" {
		res.To = from
	}

	attrs := []slog.Attr{
		slog.Int64("user_id", in.UserID),
		slog.String("kind", in.Kind.String()),
		slog.String("from", string(res.From)),
		slog.String("to", string(res.To)),
		slog.Int("replies", len(res.Replies)),
	}
	if res.ConversationID == "" {
		res.ConversationID = sess.ConversationID
	}
	if res.ConversationID != "" {
		attrs = append(attrs, slog.String("conv_id", res.ConversationID))
	}
	if err != nil {
		attrs = append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))
		logger.Error(ctx, "conversation", "transition", attrs...)
		return res, err
	}
	logger.Debug(ctx, "conversation", "transition", append(attrs, slog.String("status", "ok"))...)
	return res, nil
}

func (m *Machine) start(in Inbound, sess state.Session) Result {
	next := state.Session{
		State:          state.StateAwaitingSection,
		ConversationID: m.newID(),
		UpdatedAt:      m.now(),
	}
	m.store.Put(in.UserID, next)

	return Result{
		From:           sess.State,
		To:             next.State,
		ConversationID: next.ConversationID,
		Replies: []Reply{{
			Text:     m.messages.greeting(in.DisplayName) + "\n" + m.messages.Prompt,
			Keyboard: KeyboardShow,
			Options:  m.content.Labels(),
		}},
	}
}

func (m *Machine) isCancel(in Inbound) bool {
	if in.Command() == CommandCancel {
		return true
	}
	if in.Kind != KindText && in.Kind != KindCommand {
		return false
	}
	return m.cancel.MatchString(in.Text)
}

func (m *Machine) finish(in Inbound, sess state.Session) Result {
	if !sess.Active() {
		return Result{From: state.StateIdle, To: state.StateIdle}
	}
	m.store.Delete(in.UserID)
	return Result{
		From: sess.State,
		To:   state.StateIdle,
		Replies: []Reply{{
			Text:     m.messages.Farewell,
			Keyboard: KeyboardRemove,
		}},
	}
}

func (m *Machine) selectSection(in Inbound, sess state.Session) (Result, error) {
	label := in.Text
	if in.Kind != KindText || !m.content.HasSection(label) {
		return Result{Replies: []Reply{{Text: m.messages.Rejection, Quote: true}}}, nil
	}

	var text string
	if m.content.IsSchedule(label) {
		now := schedule.ClockOf(m.now().In(m.loc))
		if ev, ok := schedule.FindCurrent(now, m.content.Events()); ok {
			text = escapeMD(m.messages.HappeningNow) + " " + format.ItalicV1(ev.Description)
		} else {
			text = escapeMD(m.messages.FestivalOver)
		}
	} else {
		stored, err := m.content.SectionText(label)
		if err != nil {
			return Result{}, err
		}
		text = stored
	}

	sess.LastSection = label
	sess.UpdatedAt = m.now()
	m.store.Put(in.UserID, sess)

	return Result{
		From:    sess.State,
		To:      sess.State,
		Replies: []Reply{{Text: text, Markdown: true, Quote: true}},
	}, nil
}

// escapeMD keeps configured phrases literal inside Markdown replies.
func escapeMD(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1)
	if err != nil {
		return s
	}
	return out
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks hands out one mutex per user and drops it once nobody waits on it.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
