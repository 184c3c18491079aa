package wm

import (
	"bytes"
	"io"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"success":true}`)
	if err := writeMessage(&buf, TypeSubscribe, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	typ, got, err := readMessage(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != TypeSubscribe {
		t.Fatalf("expected type %d, got %d", TypeSubscribe, typ)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected payload %s, got %s", payload, got)
	}

	if _, _, err := readMessage(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF after last message, got %v", err)
	}
}

func TestMessageEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMessage(&buf, TypeGetTree, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	typ, payload, err := readMessage(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != TypeGetTree {
		t.Fatalf("expected type %d, got %d", TypeGetTree, typ)
	}
	if len(payload) != 0 {
		t.Fatalf("expected empty payload, got %q", payload)
	}
}

func TestReadMessageBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not-i3-at-all-here")
	if _, _, err := readMessage(buf); err == nil {
		t.Fatalf("expected error on bad magic")
	}
}

func TestEventFlag(t *testing.T) {
	raw := EventTypeWindow | eventFlag
	if !isEvent(raw) {
		t.Fatalf("expected event flag to be detected")
	}
	if isEvent(TypeGetTree) {
		t.Fatalf("request type misread as event")
	}
	if got := eventType(raw); got != EventTypeWindow {
		t.Fatalf("expected event type %d, got %d", EventTypeWindow, got)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "3 chat", want: `"3 chat"`},
		{name: "embedded quote", in: `dev "main"`, want: `"dev \"main\""`},
		{name: "backslash", in: `c:\tmp`, want: `"c:\\tmp"`},
		{name: "empty", in: "", want: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quote(tt.in); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
