package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// stdoutSink writes each state as one JSON line.
type stdoutSink struct {
	enc *json.Encoder
}

// NewStdoutSink creates a JSON-lines sink. A nil writer means os.Stdout.
func NewStdoutSink(w io.Writer) Sink {
	if w == nil {
		w = os.Stdout
	}
	return &stdoutSink{enc: json.NewEncoder(w)}
}

func (s *stdoutSink) Render(st *State) error {
	if err := s.enc.Encode(st); err != nil {
		return fmt.Errorf("display: stdout sink: %w", err)
	}
	return nil
}

// qrFileSink writes the QR PNG to a fixed path, overwriting.
type qrFileSink struct {
	path string
}

// NewQRFileSink creates a sink that writes the state's QR code PNG to
// path on every render. The path's directory must exist.
func NewQRFileSink(path string) Sink {
	return &qrFileSink{path: path}
}

func (s *qrFileSink) Render(st *State) error {
	if err := os.WriteFile(s.path, st.QRCode, 0o644); err != nil {
		return fmt.Errorf("display: qr file sink: %w", err)
	}
	return nil
}
