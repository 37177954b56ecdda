package tui

import (
	"github.com/completesearch/completesearch-cli/pkg/backend"
	"github.com/completesearch/completesearch-cli/pkg/session"
)

// resultMsg carries a backend response back to the event loop.
type resultMsg struct {
	token int
	req   session.Request
	resp  *backend.Response
}

// requestErrMsg reports a failed, timed out or canceled request.
type requestErrMsg struct {
	token int
	req   session.Request
	err   error
}

// debounceMsg fires after typing paused. Only the newest seq launches.
type debounceMsg struct {
	seq int
}

type facetNamesMsg struct {
	names []string
	err   error
}

// StatusMsg shows a temporary message in the status bar
type StatusMsg string

type clearStatusMsg struct {
	seq int
}
