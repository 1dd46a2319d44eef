package core

import "net/http"

// Doer is the injected HTTP capability. *http.Client satisfies it; tests
// substitute their own. The client never constructs its own transport.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}
