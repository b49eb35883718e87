package catalogsync

import "laptopkita/internal/catalog"

type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "loading"
	}
}

type Reason string

// ReasonNoData means the server holds no rows for the user; it is shown as
// an empty state rather than an error. ReasonRequestFailed covers network
// failures and timeouts.
const (
	ReasonNoData        Reason = "no_data"
	ReasonLoadFailed    Reason = "load_failed"
	ReasonServerBusy    Reason = "server_busy"
	ReasonRequestFailed Reason = "request_failed"
)

type Notice struct {
	Reason  Reason
	Message string
}

// State is the snapshot observed by presentation. Loaded is set once any
// list call has succeeded or reported no data.
type State struct {
	Status        Status
	Items         []catalog.Laptop
	Loaded        bool
	Uploading     bool
	Success       bool
	LastError     *Notice
	NonToastError *Notice
}

func (s State) clone() State {
	out := s
	if s.Items != nil {
		out.Items = append([]catalog.Laptop(nil), s.Items...)
	}
	if s.LastError != nil {
		n := *s.LastError
		out.LastError = &n
	}
	if s.NonToastError != nil {
		n := *s.NonToastError
		out.NonToastError = &n
	}
	return out
}

// Contains reports whether id is among the loaded items.
func (s State) Contains(id int64) bool {
	for _, it := range s.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}
