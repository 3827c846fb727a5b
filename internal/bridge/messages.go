// Package bridge handles messages posted from dashboard page script to the
// host: resolving local file URLs and opening links externally.
package bridge

import "errors"

// Message types.
const (
	TypeResolveFileURL  = "resolveFileUrl"
	TypeResolvedFileURL = "resolvedFileUrl"
	TypeOpenExternal    = "openExternal"
)

// ErrUnknownMessage is returned for message types the bridge does not handle.
var ErrUnknownMessage = errors.New("unknown message type")

// Message is an inbound message. Only the fields for Type are set.
type Message struct {
	Type    string `json:"type"`
	FileURL string `json:"fileUrl,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ResolvedFileURL answers a resolveFileUrl request. WebviewURL is empty when
// resolution failed. FileURL echoes the request so page script can match
// replies to the elements that asked.
type ResolvedFileURL struct {
	Type       string `json:"type"`
	FileURL    string `json:"fileUrl"`
	WebviewURL string `json:"webviewUrl"`
}

// Result is the outcome of handling one message. Reply is posted back to
// the webview when non-nil, including on failure.
type Result struct {
	Type  string
	Reply any
	Err   error
}
