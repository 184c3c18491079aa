package nativemsg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	r := NewReader(&buf)

	messages := []map[string]any{
		{"windows": map[string]any{"a": nil}},
		{"window::move": map[string]any{"a": "2"}},
		{"workspace::rename": map[string]any{"1": "1 mail"}},
	}
	for _, m := range messages {
		if err := w.Write(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for i := range messages {
		var got map[string]any
		if err := r.Read(&got); err != nil {
			t.Fatalf("read message %d: %v", i, err)
		}
		if len(got) != 1 {
			t.Fatalf("expected one top-level field, got %d", len(got))
		}
	}

	if _, err := r.ReadRaw(); err != io.EOF {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReadCleanEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	if _, err := r.ReadRaw(); err != io.EOF {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
}

func TestReadTruncatedLength(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x02}))
	_, err := r.ReadRaw()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected framing error on truncated length, got %v", err)
	}
}

func TestReadTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var head [4]byte
	binary.NativeEndian.PutUint32(head[:], 10)
	buf.Write(head[:])
	buf.WriteString("short")

	r := NewReader(&buf)
	if _, err := r.ReadRaw(); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
}

func TestReadOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var head [4]byte
	binary.NativeEndian.PutUint32(head[:], MaxFrameSize+1)
	buf.Write(head[:])

	r := NewReader(&buf)
	if _, err := r.ReadRaw(); err == nil {
		t.Fatalf("expected error on oversized frame")
	}
}

func TestFramePrefixMatchesPayloadLength(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(map[string]string{"k": "v"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw := buf.Bytes()
	if len(raw) < 4 {
		t.Fatalf("frame too short: %d bytes", len(raw))
	}
	length := binary.NativeEndian.Uint32(raw[:4])
	if int(length) != len(raw)-4 {
		t.Fatalf("expected prefix %d, got %d", len(raw)-4, length)
	}
}
