// Package nativemsg implements the native-messaging wire format: a uint32
// length prefix in native byte order followed by that many bytes of JSON.
// Browsers frame native-messaging-host traffic this way, and the agent
// speaks the same format to the host subprocess it owns.
package nativemsg

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MaxFrameSize bounds a single message. Anything larger is treated as a
// corrupt stream rather than an allocation request.
const MaxFrameSize = 16 << 20

// Reader decodes length-framed JSON messages from a byte stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for frame-by-frame reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadRaw returns the payload of the next frame. It returns io.EOF when the
// stream ends cleanly on a frame boundary.
func (r *Reader) ReadRaw() ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r.r, head[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}

	length := binary.NativeEndian.Uint32(head[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", length, MaxFrameSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return payload, nil
}

// Read decodes the next frame into v.
func (r *Reader) Read(v any) error {
	payload, err := r.ReadRaw()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return nil
}

// Writer encodes messages as length-framed JSON. Safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w for frame-by-frame writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes v and writes it as one frame.
func (w *Writer) Write(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d", len(payload), MaxFrameSize)
	}

	var head [4]byte
	binary.NativeEndian.PutUint32(head[:], uint32(len(payload)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(head[:]); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	return nil
}
