// Package domain contains entity without logic, just meta-data
package domain

type (
	GroupID   string
	SessionID string
	BridgeID  string
	PeerID    string
	AccountID string
)

// DefaultMaxMembers is the member bound submitted on session creation.
const DefaultMaxMembers = 16

// PartySession is a read-mostly snapshot of a server-side party session.
// The server owns the authoritative state; refresh by explicit re-fetch.
type PartySession struct {
	SessionID        SessionID `json:"sessionId"`
	CreatedTimestamp string    `json:"createdTimestamp,omitempty"`
	MaxMembers       int       `json:"maxMembers,omitempty"`
	Members          []Member  `json:"members,omitempty"`
	Bridges          []Bridge  `json:"bridges,omitempty"`
	CustomData1      string    `json:"customData1,omitempty"`
}

// Bridge is a relay resource mediating peer connections between members.
// BridgeToken is scoped to bridge calls only and is distinct from the
// session bearer token.
type Bridge struct {
	BridgeID    BridgeID `json:"bridgeId"`
	BridgeToken string   `json:"bridgeToken,omitempty"`
	BridgeEtag  string   `json:"bridgeEtag,omitempty"`
}
