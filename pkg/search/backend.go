package search

import "errors"

// Backend identifies a search provider. The set is closed: any selector
// outside the known names parses as BackendUnknown and is rejected
// before a network call is attempted.
type Backend int

const (
	BackendUnknown Backend = iota
	BackendTavily
	BackendBing
	BackendLocal
)

// ErrUnknownBackend is returned for selectors outside the supported set.
var ErrUnknownBackend = errors.New("unknown search backend")

// ParseBackend maps a client-supplied selector string to a Backend.
func ParseBackend(name string) Backend {
	switch name {
	case "tavily":
		return BackendTavily
	case "bing":
		return BackendBing
	case "local_search_server":
		return BackendLocal
	default:
		return BackendUnknown
	}
}

func (b Backend) String() string {
	switch b {
	case BackendTavily:
		return "tavily"
	case BackendBing:
		return "bing"
	case BackendLocal:
		return "local_search_server"
	default:
		return "unknown"
	}
}
