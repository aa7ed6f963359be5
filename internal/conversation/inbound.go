package conversation

import "strings"

// Kind tags what an inbound message carries.
type Kind int

const (
	KindText Kind = iota
	KindCommand
	KindDocument
	KindPhoto
	KindSticker
	KindOther
)

var kindNames = map[Kind]string{
	KindText:     "text",
	KindCommand:  "command",
	KindDocument: "document",
	KindPhoto:    "photo",
	KindSticker:  "sticker",
	KindOther:    "other",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Inbound is a single user message as seen by the machine.
type Inbound struct {
	UserID int64
	Kind   Kind
	// Text is the message text or the full command line ("/start payload").
	Text string
	// DisplayName is used in the greeting; may be empty.
	DisplayName string
}

// Command returns the command name without slash, bot mention and arguments.
// It returns "" for non-command messages.
func (in Inbound) Command() string {
	if in.Kind != KindCommand {
		return ""
	}
	return CommandName(in.Text)
}

// CommandName extracts "start" from "/start@festbot payload".
func CommandName(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.TrimPrefix(text, "/")
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// KeyboardAction tells the transport what to do with the reply keyboard.
type KeyboardAction int

const (
	KeyboardNone KeyboardAction = iota
	KeyboardShow
	KeyboardRemove
)

// Reply is one outbound message.
type Reply struct {
	Text string
	// Markdown enables Telegram Markdown (v1) parsing.
	Markdown bool
	// Quote sends the reply as a response to the inbound message.
	Quote    bool
	Keyboard KeyboardAction
	// Options are the button labels for KeyboardShow, one per row.
	Options []string
}
