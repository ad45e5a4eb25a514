// Package payload implements the compressed word-collection wire format:
// base64(zlib(UTF-8 JSON array of HTML fragment strings)).
//
// The same codec runs on both sides of the API: the server compresses the
// day's fragments into an Envelope, the widget (and the Go render pipeline)
// decompresses it back. The format is fixed by the display device's plugin
// contract, so the encoding steps are deliberately explicit rather than
// hidden behind a transport layer.
package payload

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrDecode is returned when the payload is not valid base64.
var ErrDecode = errors.New("payload: invalid base64")

// ErrInflate is returned when the zlib stream is corrupt or truncated.
var ErrInflate = errors.New("payload: corrupt zlib stream")

// ErrEncoding is returned when the decompressed bytes are not valid UTF-8.
var ErrEncoding = errors.New("payload: decompressed data is not valid UTF-8")

// Envelope is the JSON body of GET /api/words and of the TRMNL push.
// The compressed field nests under "merge_variables" because that is the
// key the display plugin template reads its variables from.
type Envelope struct {
	MergeVariables MergeVariables `json:"merge_variables"`
}

// MergeVariables holds the template variables for the display plugin.
type MergeVariables struct {
	Compressed string `json:"compressed"`
}

// NewEnvelope wraps an already-compressed payload string.
func NewEnvelope(compressed string) *Envelope {
	return &Envelope{MergeVariables: MergeVariables{Compressed: compressed}}
}

// Compress deflates text with zlib at best compression and encodes the
// result as standard base64. The payload rides a constrained device fetch,
// so compression ratio wins over CPU here.
func Compress(text string) (string, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("payload: zlib writer: %w", err)
	}
	if _, err := zw.Write([]byte(text)); err != nil {
		zw.Close()
		return "", fmt.Errorf("payload: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("payload: compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress: base64 decode, zlib inflate, UTF-8 check.
// Each stage fails with its own sentinel (ErrDecode, ErrInflate,
// ErrEncoding) and nothing is recovered locally; a bad payload halts the
// render.
func Decompress(b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInflate, err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInflate, err)
	}

	if !utf8.Valid(plain) {
		return "", ErrEncoding
	}
	return string(plain), nil
}
