package display

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/mainichigo/kotoba/payload"
)

func envelopeFor(t *testing.T, entries []string) *payload.Envelope {
	t.Helper()
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatal(err)
	}
	b64, err := payload.Compress(string(raw))
	if err != nil {
		t.Fatal(err)
	}
	return payload.NewEnvelope(b64)
}

func fakeFetch(env *payload.Envelope, err error) FetchFunc {
	return func(context.Context, string) (*payload.Envelope, error) {
		return env, err
	}
}

// recordingSink captures every Apply for inspection.
type recordingSink struct {
	states []*State
}

func (r *recordingSink) Render(s *State) error {
	r.states = append(r.states, s)
	return nil
}

func TestDecode_RoundTrip(t *testing.T) {
	// WHAT: Decode reverses the server's compress-and-wrap exactly.
	want := []string{"<div>一</div>", "<div>二</div>"}
	got, err := Decode(envelopeFor(t, want))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("decode: got %v", got)
	}
}

func TestDecode_BadBase64(t *testing.T) {
	// WHAT: Payload errors propagate with their sentinel intact.
	_, err := Decode(payload.NewEnvelope("!!!"))
	if !errors.Is(err, payload.ErrDecode) {
		t.Fatalf("got %v, want payload.ErrDecode", err)
	}
}

func TestSelect_Bounds(t *testing.T) {
	// WHAT: Select returns exactly entries[i] for valid i and
	// ErrOffsetRange otherwise.
	entries := []string{"a", "b", "c"}
	for i, want := range entries {
		got, err := Select(entries, i)
		if err != nil || got != want {
			t.Fatalf("Select(%d) = %q, %v", i, got, err)
		}
	}
	for _, bad := range []int{-1, 3, 100} {
		if _, err := Select(entries, bad); !errors.Is(err, ErrOffsetRange) {
			t.Fatalf("Select(%d): got %v, want ErrOffsetRange", bad, err)
		}
	}
}

func TestFontSizeFor(t *testing.T) {
	// WHAT: Font size is 50% of measured height; zero height gives zero.
	if got := FontSizeFor(200); got != 100 {
		t.Errorf("FontSizeFor(200) = %v, want 100", got)
	}
	if got := FontSizeFor(0); got != 0 {
		t.Errorf("FontSizeFor(0) = %v, want 0", got)
	}
}

func TestExtractPlainText(t *testing.T) {
	// WHAT: The first .text element's content is stripped and trimmed.
	tests := []struct {
		fragment string
		want     string
	}{
		{`<span class='text'>猫</span>`, "猫"},
		{`<div class="representation"><div class="text"> 犬 </div></div>`, "犬"},
		{`<div class="text"><ruby>食<rt>た</rt></ruby>べる</div>`, "食たべる"},
		{`<div class="other">x</div><div class="text furigana-host">鳥</div>`, "鳥"},
	}
	for _, tt := range tests {
		got, err := ExtractPlainText(tt.fragment)
		if err != nil {
			t.Fatalf("ExtractPlainText(%q): %v", tt.fragment, err)
		}
		if got != tt.want {
			t.Errorf("ExtractPlainText(%q) = %q, want %q", tt.fragment, got, tt.want)
		}
	}
}

func TestExtractPlainText_NoTextClass(t *testing.T) {
	_, err := ExtractPlainText(`<div class="representation">裸</div>`)
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("got %v, want ErrNoText", err)
	}
}

func TestLookupURL_Escaped(t *testing.T) {
	// WHAT: Non-ASCII lookup text is percent-encoded.
	// WHY: The QR consumer has no browser to fix up a raw URL.
	got := LookupURL("https://jisho.org/search/", "犬")
	want := "https://jisho.org/search/" + url.PathEscape("犬")
	if got != want {
		t.Errorf("LookupURL = %q, want %q", got, want)
	}
	if strings.ContainsRune(got, '犬') {
		t.Error("lookup URL contains raw non-ASCII text")
	}
}

func TestQR(t *testing.T) {
	png, err := QR("https://jisho.org/search/%E7%8A%AC", 128)
	if err != nil {
		t.Fatal(err)
	}
	if len(png) == 0 {
		t.Fatal("empty QR image")
	}
	// PNG magic header.
	if string(png[1:4]) != "PNG" {
		t.Errorf("not a PNG: % x", png[:8])
	}
}

func TestRun_EndToEnd(t *testing.T) {
	// WHAT: The whole pipeline on the canonical one-word payload.
	// WHY: This is the end-to-end scenario the display exercises daily.
	fragment := `<div class="representation"><div class="text">犬</div></div>`
	env := envelopeFor(t, []string{fragment})

	state, err := Run(context.Background(), fakeFetch(env, nil), Config{
		URL:            "http://example/api/words",
		RegionHeightPx: 200,
	})
	if err != nil {
		t.Fatal(err)
	}
	if state.Fragment != fragment {
		t.Errorf("fragment: got %q", state.Fragment)
	}
	if state.LookupText != "犬" {
		t.Errorf("lookup text: got %q", state.LookupText)
	}
	if !strings.HasSuffix(state.LookupURL, url.PathEscape("犬")) {
		t.Errorf("lookup URL: got %q", state.LookupURL)
	}
	if state.FontSizePx != 100 {
		t.Errorf("font size: got %v", state.FontSizePx)
	}
	if len(state.QRCode) == 0 {
		t.Error("no QR code")
	}

	sink := &recordingSink{}
	if err := Apply(state, sink); err != nil {
		t.Fatal(err)
	}
	if len(sink.states) != 1 || sink.states[0] != state {
		t.Fatalf("sink saw %d states", len(sink.states))
	}
}

func TestRun_OffsetOutOfBounds(t *testing.T) {
	// WHAT: An out-of-range offset fails before any state exists.
	env := envelopeFor(t, []string{`<div class="text">犬</div>`})
	_, err := Run(context.Background(), fakeFetch(env, nil), Config{Offset: 1})
	if !errors.Is(err, ErrOffsetRange) {
		t.Fatalf("got %v, want ErrOffsetRange", err)
	}
}

func TestRun_FailureIsNoOp(t *testing.T) {
	// WHAT: A malformed payload aborts before the sink could ever run.
	// WHY: The contract requires no partial render on failure.
	_, err := Run(context.Background(), fakeFetch(payload.NewEnvelope("bad!"), nil), Config{})
	if !errors.Is(err, payload.ErrDecode) {
		t.Fatalf("got %v, want payload.ErrDecode", err)
	}
}

func TestRun_FetchError(t *testing.T) {
	boom := errors.New("network down")
	_, err := Run(context.Background(), fakeFetch(nil, boom), Config{})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want fetch error", err)
	}
}
