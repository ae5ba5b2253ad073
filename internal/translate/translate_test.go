package translate_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dubber/internal/services"
	"dubber/internal/speakers"
	"dubber/internal/translate"
)

type fakeLLM struct {
	content string
	err     error
	prompts []string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _, user string) (string, error) {
	f.prompts = append(f.prompts, user)
	return f.content, f.err
}

type fakeMT struct {
	out    string
	err    error
	source string
	calls  int
}

func (f *fakeMT) Translate(_ context.Context, _, source, _ string) (string, error) {
	f.calls++
	f.source = source
	return f.out, f.err
}

type blockingLLM struct{}

func (blockingLLM) CompleteJSON(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

var quality = translate.Quality{CorruptionMarkers: []string{"Anterior:"}, MinChars: 2, RejectEcho: true}

func TestTargetWordCount(t *testing.T) {
	tests := []struct {
		seconds float64
		want    int
	}{
		{seconds: 0, want: 1},
		{seconds: 0.1, want: 1},
		{seconds: 2, want: 5},
		{seconds: 3, want: 8},
		{seconds: 60, want: 150},
	}
	for _, tc := range tests {
		if got := translate.TargetWordCount(tc.seconds, 150); got != tc.want {
			t.Fatalf("TargetWordCount(%v) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
	if low, high := translate.Band(10, 0.1); low != 9 || high != 11 {
		t.Fatalf("unexpected band %d-%d", low, high)
	}
	if low, high := translate.Band(1, 0.1); low != 1 || high != 2 {
		t.Fatalf("unexpected band for one word %d-%d", low, high)
	}
}

func TestTranslateUsesLLMWithBudgetPrompt(t *testing.T) {
	gen := &fakeLLM{content: `{"translation": "\"Hola a todos\""}`}
	mt := &fakeMT{out: "unused"}
	tr := translate.New(gen, mt, translate.Options{Tolerance: 0.1, Quality: quality}, nil)

	res, err := tr.Translate(context.Background(), translate.Request{Text: "Hello everyone", Source: "en", Target: "es", Duration: 4})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "Hola a todos" || res.Tier != translate.TierLLM || res.TargetWords != 10 {
		t.Fatalf("unexpected result %+v", res)
	}
	if mt.calls != 0 {
		t.Fatal("mt tier must not run when llm succeeds")
	}
	prompt := gen.prompts[0]
	for _, fragment := range []string{"English text to Spanish", "10 words (between 9 and 11)", `"Hello everyone"`} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("expected %q in prompt %q", fragment, prompt)
		}
	}
}

func TestTranslateFallsBackToMTOnRejects(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeLLM
	}{
		{name: "backend error", gen: &fakeLLM{err: services.Wrap(services.ErrExternalService, "llm", "complete", "", errors.New("503"))}},
		{name: "corruption marker", gen: &fakeLLM{content: `{"translation":"Anterior: hola"}`}},
		{name: "empty", gen: &fakeLLM{content: `{"translation":"  "}`}},
		{name: "echo", gen: &fakeLLM{content: `{"translation":"We are going to the market today"}`}},
		{name: "malformed", gen: &fakeLLM{content: "sorry"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mt := &fakeMT{out: "  Vamos al mercado hoy  "}
			tr := translate.New(tc.gen, mt, translate.Options{Quality: quality}, nil)
			res, err := tr.Translate(context.Background(), translate.Request{
				Text: "We are going to the market today", Source: "en", Target: "es", Duration: 2,
			})
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if res.Tier != translate.TierMT || res.Text != "Vamos al mercado hoy" {
				t.Fatalf("unexpected result %+v", res)
			}
			if len(res.Failures) != 1 || res.Failures[0].Strategy != translate.TierLLM {
				t.Fatalf("unexpected failures %+v", res.Failures)
			}
		})
	}
}

func TestTranslatePassThroughWhenAllTiersFail(t *testing.T) {
	gen := &fakeLLM{err: errors.New("down")}
	mt := &fakeMT{out: ""}
	tr := translate.New(gen, mt, translate.Options{Quality: quality}, nil)
	res, err := tr.Translate(context.Background(), translate.Request{Text: "Good night", Target: "fr", Duration: 1})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Text != "Good night" || res.Tier != translate.TierPassthrough || len(res.Failures) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if mt.source != "" {
		t.Fatalf("unknown source language should be passed empty, got %q", mt.source)
	}
}

func TestTranslateWithoutBackendsPassesThrough(t *testing.T) {
	tr := translate.New(nil, nil, translate.Options{}, nil)
	res, err := tr.Translate(context.Background(), translate.Request{Text: "hi", Target: "de", Duration: 1})
	if err != nil || res.Text != "hi" || res.Tier != translate.TierPassthrough {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
}

func TestTranslateTierTimeout(t *testing.T) {
	mt := &fakeMT{out: "Bonjour"}
	tr := translate.New(blockingLLM{}, mt, translate.Options{Quality: quality, LLMTimeout: 10 * time.Millisecond}, nil)
	res, err := tr.Translate(context.Background(), translate.Request{Text: "Hello", Source: "en", Target: "fr", Duration: 1})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Tier != translate.TierMT {
		t.Fatalf("expected mt after llm timeout, got %+v", res)
	}
}

func TestTranslateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := translate.New(&fakeLLM{content: `{"translation":"x"}`}, nil, translate.Options{}, nil)
	if _, err := tr.Translate(ctx, translate.Request{Text: "hello", Target: "es"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestTranslateBlankInput(t *testing.T) {
	tr := translate.New(nil, nil, translate.Options{}, nil)
	if _, err := tr.Translate(context.Background(), translate.Request{Text: "   ", Target: "es"}); !errors.Is(err, services.ErrEmptyInput) {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestQualityCheck(t *testing.T) {
	if err := quality.Check("a", "b", "en", "es"); err != nil {
		t.Fatalf("single-rune output of single-rune source should pass: %v", err)
	}
	if err := quality.Check("Hello", "x", "en", "es"); !errors.Is(err, services.ErrTranslationQualityReject) {
		t.Fatalf("expected reject for too short output, got %v", err)
	}
	same := "this line stays exactly the same"
	if err := quality.Check(same, same, "en", "en"); err != nil {
		t.Fatalf("same-language echo must pass: %v", err)
	}
	if err := quality.Check("short echo", "short echo", "en", "es"); err != nil {
		t.Fatalf("echo check applies only to longer lines: %v", err)
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		`  "Hola   mundo" `: "Hola mundo",
		"«Bonjour»":        "Bonjour",
		"'it's'":           "it's",
		"plain\ttext\n":    "plain text",
		`"`:                `"`,
	}
	for in, want := range tests {
		if got := translate.Clean(in); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslateSegment(t *testing.T) {
	tr := translate.New(&fakeLLM{content: `{"translation":"Hola"}`}, nil, translate.Options{Quality: quality}, nil)
	seg := speakers.Segment{Index: 3, Start: 1, End: 1.05, Text: "Hi", Speaker: "SPEAKER_01"}
	out, err := tr.TranslateSegment(context.Background(), seg, 0.1, "en", "es")
	if err != nil {
		t.Fatalf("TranslateSegment: %v", err)
	}
	if out.Index != 3 || out.Speaker != "SPEAKER_01" || out.OriginalText != "Hi" || out.TranslatedText != "Hola" {
		t.Fatalf("unexpected segment %+v", out)
	}
	if out.TargetWordCount != 1 || out.Tier != translate.TierLLM {
		t.Fatalf("unexpected budget %+v", out)
	}
}
