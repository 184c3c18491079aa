package protocol

// Message shapes exchanged between the agent and the host. Field names are
// fixed by the wire contract; both ends marshal with encoding/json.

// SyncRequest asks the host to identify, move and/or locate windows.
// A nil placement means "just tell me where it is".
type SyncRequest struct {
	Windows map[string]*string `json:"windows"`
}

// SyncResponse answers a SyncRequest with the actual placement of every
// window the host could correlate. Requested identities the host could not
// find are absent.
type SyncResponse struct {
	Windows map[string]string `json:"windows"`
}

// MoveNotification tells the agent a tracked window was moved manager-side.
type MoveNotification struct {
	Moved map[string]string `json:"window::move"`
}

// RenameNotification tells the agent a workspace was renamed.
type RenameNotification struct {
	Renamed map[string]string `json:"workspace::rename"`
}

// NewMoveNotification builds a single-window move notification.
func NewMoveNotification(identity, placement string) *MoveNotification {
	return &MoveNotification{Moved: map[string]string{identity: placement}}
}

// NewRenameNotification builds a workspace rename notification.
func NewRenameNotification(oldName, newName string) *RenameNotification {
	return &RenameNotification{Renamed: map[string]string{oldName: newName}}
}

// Kind identifies which message shape an inbound frame carried.
type Kind int

const (
	KindUnknown Kind = iota
	KindSync
	KindMove
	KindRename
)

// Envelope is the union of all inbound message shapes. Decode a frame into
// it and dispatch on Kind.
type Envelope struct {
	Windows map[string]*string `json:"windows"`
	Move    map[string]string  `json:"window::move"`
	Rename  map[string]string  `json:"workspace::rename"`
}

// Kind reports the message kind carried by the envelope. A frame with none
// of the known fields is KindUnknown.
func (e *Envelope) Kind() Kind {
	switch {
	case e.Windows != nil:
		return KindSync
	case e.Move != nil:
		return KindMove
	case e.Rename != nil:
		return KindRename
	default:
		return KindUnknown
	}
}
