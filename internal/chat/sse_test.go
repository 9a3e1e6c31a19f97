package chat

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrameReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		lastErr error
	}{
		{
			name:    "single frames",
			input:   "data: {\"a\":1}\n\ndata: {\"b\":2}\n\n",
			want:    []string{`{"a":1}`, `{"b":2}`},
			lastErr: io.EOF,
		},
		{
			name:    "comments and fields ignored",
			input:   ": keepalive\n\nevent: message\nid: 7\ndata: x\n\n",
			want:    []string{"x"},
			lastErr: io.EOF,
		},
		{
			name:    "multi-line data and CRLF",
			input:   "data: one\r\ndata: two\r\n\r\n",
			want:    []string{"one\ntwo"},
			lastErr: io.EOF,
		},
		{
			name:    "truncated frame",
			input:   "data: {\"a\":1}\n\ndata: {\"b\"",
			want:    []string{`{"a":1}`},
			lastErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "empty stream",
			input:   "",
			lastErr: io.EOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewFrameReader(strings.NewReader(tt.input))
			var got []string
			var err error
			for {
				var data []byte
				data, err = r.Next()
				if err != nil {
					break
				}
				got = append(got, string(data))
			}
			if !errors.Is(err, tt.lastErr) {
				t.Errorf("final error = %v, want %v", err, tt.lastErr)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("frames = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteFrame_ReadBack(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, ContentEvent("GST for April is reconciled.")); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "data: {") || !strings.HasSuffix(buf.String(), "}\n\n") {
		t.Fatalf("unexpected frame %q", buf.String())
	}
	data, err := NewFrameReader(&buf).Next()
	if err != nil {
		t.Fatal(err)
	}
	ev, err := DecodeEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventContent || ev.Content != "GST for April is reconciled." {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestDecodeEvent_RejectsUnknownType(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"type":"heartbeat"}`)); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
}
