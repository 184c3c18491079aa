package protocol

import "testing"

const testIdentity = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func TestMarkerFormat(t *testing.T) {
	want := testIdentity + " | "
	if got := Marker(testIdentity); got != want {
		t.Fatalf("expected marker %q, got %q", want, got)
	}
}

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		wantID string
		wantOK bool
	}{
		{name: "marker with title", title: testIdentity + " | Inbox - Mail", wantID: testIdentity, wantOK: true},
		{name: "marker alone", title: testIdentity + " | ", wantID: testIdentity, wantOK: true},
		{name: "empty title", title: "", wantOK: false},
		{name: "too short", title: testIdentity, wantOK: false},
		{name: "wrong separator", title: testIdentity + " - Inbox", wantOK: false},
		{name: "not a uuid", title: "this-is-not-a-uuid-production-string | x", wantOK: false},
		{name: "marker not at start", title: "x" + testIdentity + " | y", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractMarker(tt.title)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if id != tt.wantID {
				t.Fatalf("expected identity %q, got %q", tt.wantID, id)
			}
		})
	}
}

func TestStripMarker(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "strips marker", title: testIdentity + " | Inbox", want: "Inbox"},
		{name: "no marker untouched", title: "Inbox", want: "Inbox"},
		{name: "marker only", title: testIdentity + " | ", want: ""},
		{name: "double marker strips one", title: testIdentity + " | " + testIdentity + " | x", want: testIdentity + " | x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarker(tt.title); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
