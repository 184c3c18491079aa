// Package wm speaks the i3/sway IPC protocol over the manager's unix
// socket: a "i3-ipc" magic string, then payload length and message type as
// native-order uint32s, then a JSON payload. Replies to SUBSCRIBE arrive
// later as event frames with the high bit set in the type word.
package wm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const magic = "i3-ipc"

// headerLen is magic + length word + type word.
const headerLen = len(magic) + 4 + 4

// maxPayload bounds a single IPC payload. Trees on large sessions run to a
// few hundred kilobytes; anything near this limit is a corrupt stream.
const maxPayload = 16 << 20

// Request message types.
const (
	TypeRunCommand    uint32 = 0
	TypeGetWorkspaces uint32 = 1
	TypeSubscribe     uint32 = 2
	TypeGetTree       uint32 = 4
)

// Event types, after stripping the event flag.
const (
	eventFlag          uint32 = 1 << 31
	EventTypeWorkspace uint32 = 0
	EventTypeWindow    uint32 = 3
)

// writeMessage frames and writes one IPC message.
func writeMessage(w io.Writer, typ uint32, payload []byte) error {
	buf := make([]byte, headerLen+len(payload))
	copy(buf, magic)
	binary.NativeEndian.PutUint32(buf[len(magic):], uint32(len(payload)))
	binary.NativeEndian.PutUint32(buf[len(magic)+4:], typ)
	copy(buf[headerLen:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// readMessage reads one framed IPC message and returns its raw type word
// (event flag intact) and payload.
func readMessage(r io.Reader) (uint32, []byte, error) {
	head := make([]byte, headerLen)
	if _, err := io.ReadFull(r, head); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("failed to read message header: %w", err)
	}
	if string(head[:len(magic)]) != magic {
		return 0, nil, fmt.Errorf("bad magic %q in message header", head[:len(magic)])
	}

	length := binary.NativeEndian.Uint32(head[len(magic):])
	typ := binary.NativeEndian.Uint32(head[len(magic)+4:])
	if length > maxPayload {
		return 0, nil, fmt.Errorf("payload of %d bytes exceeds limit of %d", length, maxPayload)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("failed to read message payload: %w", err)
	}
	return typ, payload, nil
}

// isEvent reports whether a raw type word marks an event frame.
func isEvent(typ uint32) bool {
	return typ&eventFlag != 0
}

// eventType strips the event flag from a raw type word.
func eventType(typ uint32) uint32 {
	return typ &^ eventFlag
}

// Quote wraps s in double quotes for use inside an IPC command, escaping
// backslashes and embedded quotes.
func Quote(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + replacer.Replace(s) + `"`
}
