package conversation

import (
	"regexp"
	"strings"
)

// DefaultCancelPattern matches thank-you and cancel phrases anywhere in a message.
const DefaultCancelPattern = `(?i)(thank|cancel|спасибо|отмена)`

// Messages are the fixed phrases of the bot.
type Messages struct {
	// Greeting may contain {name}, replaced with the user's display name.
	Greeting     string `yaml:"greeting"`
	GreetingAnon string `yaml:"greeting_anon"`
	Prompt       string `yaml:"prompt"`
	Rejection    string `yaml:"rejection"`
	HappeningNow string `yaml:"happening_now"`
	FestivalOver string `yaml:"festival_over"`
	Farewell     string `yaml:"farewell"`
	Unknown      string `yaml:"unknown"`
}

// DefaultMessages returns the built-in phrases.
func DefaultMessages() Messages {
	return Messages{
		Greeting:     "Hi, {name}!\nI will help you find your way around the festival schedule!",
		GreetingAnon: "Hi!\nI will help you find your way around the festival schedule!",
		Prompt:       "Which section would you like to check?",
		Rejection:    "There is no such section. Please pick one from the list.",
		HappeningNow: "Great! Happening now:",
		FestivalOver: "Looks like the festival is already over!",
		Farewell:     "Thanks for using the bot!",
		Unknown:      "I don't know what to do with this!",
	}
}

// WithDefaults fills empty phrases from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&m.Greeting, d.Greeting)
	fill(&m.GreetingAnon, d.GreetingAnon)
	fill(&m.Prompt, d.Prompt)
	fill(&m.Rejection, d.Rejection)
	fill(&m.HappeningNow, d.HappeningNow)
	fill(&m.FestivalOver, d.FestivalOver)
	fill(&m.Farewell, d.Farewell)
	fill(&m.Unknown, d.Unknown)
	return m
}

func (m Messages) greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.GreetingAnon
	}
	return strings.ReplaceAll(m.Greeting, "{name}", name)
}

// CompileCancelPattern compiles expr, falling back to DefaultCancelPattern when empty.
func CompileCancelPattern(expr string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		expr = DefaultCancelPattern
	}
	return regexp.Compile(expr)
}
