package logger

import (
	"testing"
	"time"
)

func TestMetaAccumulates(t *testing.T) {
	ctx := WithRID(nil, "1:2:3")
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "text")
	ctx = WithConversation(ctx, "conv")

	want := Meta{RID: "1:2:3", ConversationID: "conv", Handler: "text", UpdateID: 1, UserID: 3, ChatID: 2}
	if got := MetaFrom(ctx); got != want {
		t.Fatalf("MetaFrom = %+v, want %+v", got, want)
	}
	if UserIDFrom(ctx) != 3 || ChatIDFrom(ctx) != 2 || UpdateIDFrom(ctx) != 1 || HandlerFrom(ctx) != "text" {
		t.Fatalf("accessors disagree with %+v", MetaFrom(ctx))
	}

	parent := WithRID(Background(), "parent")
	_ = WithHandler(parent, "child")
	if HandlerFrom(parent) != "" {
		t.Fatal("child context must not leak into parent")
	}
	if (MetaFrom(nil) != Meta{}) {
		t.Fatal("nil context must yield empty meta")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(nil) != L {
		t.Fatal("expected global logger for nil context")
	}
	l := Component("test")
	if FromContext(WithLogger(Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}

func TestCompactRID(t *testing.T) {
	tests := map[string]string{
		"35:36:1295": "z.10.zz",
		" 1:-2:3 ":   "1.-2.3",
		"rid-123":    "rid-123",
		"1:x:3":      "1:x:3",
		"":           "",
	}
	for in, want := range tests {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := Sanitize("a\x00b\u200bc\td\n\x7f"); got != "abc\td\n" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("abc", 0); got != "" {
		t.Fatalf("SanitizeLimit zero = %q", got)
	}
}

func TestSummarizeStrings(t *testing.T) {
	if s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2); s != "a, b" || !cut {
		t.Fatalf("got %q %v", s, cut)
	}
	if s, cut := SummarizeStrings([]string{"a"}, 5); s != "a" || cut {
		t.Fatalf("got %q %v", s, cut)
	}
	if s, cut := SummarizeStrings(nil, 0); s != "" || cut {
		t.Fatalf("got %q %v", s, cut)
	}
}

func TestRoundMS(t *testing.T) {
	if RoundMS(-time.Second) != 0 {
		t.Fatal("negative durations must round to zero")
	}
	if RoundMS(1499*time.Microsecond) != time.Millisecond {
		t.Fatal("expected 1ms")
	}
}
