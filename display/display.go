// Package display implements the device-side pipeline as an explicit state
// value: fetch, decode, select, font size, plain text, lookup URL, QR.
//
// The browser widget keeps its state in the live DOM; this package is the
// same contract with the state made explicit, so the pipeline is testable
// without a browser and other front ends (the e-ink card, the /api/qr
// route) drive sinks from the same State.
package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mainichigo/kotoba/payload"
)

// ErrOffsetRange is returned when the requested entry index is out of
// bounds of the decoded word array.
var ErrOffsetRange = errors.New("display: offset out of range")

// ErrNoText is returned when a fragment has no element classed "text",
// which the lookup URL and QR code depend on.
var ErrNoText = errors.New("display: fragment has no text element")

// State is the fully-computed render result. It is built completely before
// any sink sees it, so a failure anywhere in the pipeline leaves outputs
// untouched.
type State struct {
	Entries    []string `json:"entries"`      // decoded word fragments
	Offset     int      `json:"offset"`       // selected index
	Fragment   string   `json:"fragment"`     // Entries[Offset]
	FontSizePx float64  `json:"font_size_px"` // representation region font size
	LookupText string   `json:"lookup_text"`  // plain text extracted from the fragment
	LookupURL  string   `json:"lookup_url"`   // dictionary search URL
	QRCode     []byte   `json:"qr_png"`       // PNG, QRSize by QRSize
}

// FetchFunc retrieves the word envelope. Client.Fetch satisfies this;
// tests inject fakes.
type FetchFunc func(ctx context.Context, url string) (*payload.Envelope, error)

// Sink receives a completed State. Implementations write to a DOM, an
// e-ink framebuffer, or a test recorder.
type Sink interface {
	Render(*State) error
}

// Config configures one render pass.
type Config struct {
	// URL of the words API endpoint.
	URL string
	// Offset selects which decoded entry to render. The server already
	// rotates the selection by date, so the display always asks for 0.
	Offset int
	// RegionHeightPx is the measured height of the representation region
	// on the target display. Defaults to 200, the widget's CSS region.
	RegionHeightPx float64
	// LookupBaseURL is the dictionary search prefix. Default: jisho.org.
	LookupBaseURL string
	// QRSize is the QR code edge length in pixels. Default: 128.
	QRSize int
}

func (c *Config) defaults() {
	if c.LookupBaseURL == "" {
		c.LookupBaseURL = "https://jisho.org/search/"
	}
	if c.QRSize <= 0 {
		c.QRSize = 128
	}
	if c.RegionHeightPx == 0 {
		c.RegionHeightPx = 200
	}
}

// Decode decompresses the envelope payload and parses the word array.
// Payload errors (ErrDecode, ErrInflate, ErrEncoding) propagate unwrapped.
func Decode(env *payload.Envelope) ([]string, error) {
	text, err := payload.Decompress(env.MergeVariables.Compressed)
	if err != nil {
		return nil, err
	}
	var entries []string
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("display: parse word array: %w", err)
	}
	return entries, nil
}

// Select returns entries[offset] after a bounds check.
func Select(entries []string, offset int) (string, error) {
	if offset < 0 || offset >= len(entries) {
		return "", fmt.Errorf("%w: %d of %d", ErrOffsetRange, offset, len(entries))
	}
	return entries[offset], nil
}

// FontSizeFor returns the font size for a representation region of the
// given measured height: half the height, the fixed fraction that keeps
// glyphs inside the fixed-size display for typical word lengths. A height
// of 0 yields 0.
func FontSizeFor(heightPx float64) float64 {
	return heightPx * 0.5
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// ExtractPlainText finds the first element classed "text" in the fragment
// and returns its content with markup stripped. Stripping is the generic
// <...> pattern rather than a parse; the result is embedded in a lookup
// URL, so imperfect stripping of pathological markup is tolerable.
func ExtractPlainText(fragment string) (string, error) {
	inner, ok := innerHTMLOfClass(fragment, "text")
	if !ok {
		return "", ErrNoText
	}
	return strings.TrimSpace(tagPattern.ReplaceAllString(inner, "")), nil
}

// LookupURL builds the dictionary search URL for text. The text is
// percent-encoded here: unlike a browser address bar, the QR consumer has
// nothing that would encode a raw 犬 on its behalf.
func LookupURL(base, text string) string {
	return base + url.PathEscape(text)
}

// QR encodes content as a size by size PNG at the highest error-correction
// level, black on white: e-ink displays are low-contrast and the code
// must survive partial refresh artifacts.
func QR(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Highest, size)
	if err != nil {
		return nil, fmt.Errorf("display: qr encode: %w", err)
	}
	return png, nil
}

// Run executes the whole pipeline and returns the completed State. The
// sequence is strictly linear; the first error aborts with no partial
// result.
func Run(ctx context.Context, fetch FetchFunc, cfg Config) (*State, error) {
	cfg.defaults()

	env, err := fetch(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}

	entries, err := Decode(env)
	if err != nil {
		return nil, err
	}

	fragment, err := Select(entries, cfg.Offset)
	if err != nil {
		return nil, err
	}

	text, err := ExtractPlainText(fragment)
	if err != nil {
		return nil, err
	}

	lookup := LookupURL(cfg.LookupBaseURL, text)
	png, err := QR(lookup, cfg.QRSize)
	if err != nil {
		return nil, err
	}

	return &State{
		Entries:    entries,
		Offset:     cfg.Offset,
		Fragment:   fragment,
		FontSizePx: FontSizeFor(cfg.RegionHeightPx),
		LookupText: text,
		LookupURL:  lookup,
		QRCode:     png,
	}, nil
}

// Apply drives sinks from a completed state, in order. The first sink
// error aborts the rest.
func Apply(s *State, sinks ...Sink) error {
	for _, sink := range sinks {
		if err := sink.Render(s); err != nil {
			return fmt.Errorf("display: apply: %w", err)
		}
	}
	return nil
}

// innerHTMLOfClass parses fragment and returns the rendered children of
// the first element whose class attribute contains the given token.
func innerHTMLOfClass(fragment, class string) (string, bool) {
	ctxNode := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return "", false
	}
	for _, n := range nodes {
		if found := findClass(n, class); found != nil {
			var buf bytes.Buffer
			for c := found.FirstChild; c != nil; c = c.NextSibling {
				if err := html.Render(&buf, c); err != nil {
					return "", false
				}
			}
			return buf.String(), true
		}
	}
	return "", false
}

func findClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key != "class" {
				continue
			}
			for _, token := range strings.Fields(a.Val) {
				if token == class {
					return n
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}
