package chat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteFrame encodes ev as a single `data:` frame.
func WriteFrame(w io.Writer, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

// FrameReader splits an event stream into frames. Comment lines and the event, id
// and retry fields are ignored; multi-line data is joined with newlines.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the data of the next non-empty frame. It returns io.EOF when the stream
// ends cleanly between frames and io.ErrUnexpectedEOF when it ends inside one.
func (f *FrameReader) Next() ([]byte, error) {
	var data bytes.Buffer
	started := false
	for {
		line, err := f.r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			if err == io.EOF && started {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if started && data.Len() > 0 {
				return data.Bytes(), nil
			}
			started = false
			data.Reset()
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}
		started = true
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field == "data" {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
	}
}

// DecodeEvent parses one frame's data.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if !ev.Type.Known() {
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}
