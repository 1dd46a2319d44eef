package domain

// Member represents a session member's server-side record.
// The three mutable customData fields are vendor-opaque blobs; customData4
// must be re-submitted whenever local mute/video state changes or remote
// peers observe stale capability.
type Member struct {
	AccountID          AccountID     `json:"accountId"`
	OnlineID           string        `json:"onlineId,omitempty"`
	Platform           string        `json:"platform,omitempty"`
	DeviceUniqueID     string        `json:"deviceUniqueId,omitempty"`
	JoinTimestamp      string        `json:"joinTimestamp,omitempty"`
	VoiceChatActivated bool          `json:"voiceChatActivated,omitempty"`
	CustomData2        string        `json:"customData2,omitempty"`
	CustomData3        string        `json:"customData3,omitempty"`
	CustomData4        string        `json:"customData4,omitempty"`
	PushContexts       []PushContext `json:"pushContexts,omitempty"`
}

// PushContext binds a member to its push-notification registration.
type PushContext struct {
	ContextID string `json:"contextId"`
}

// CustomMessageUser addresses a control message to one session member.
type CustomMessageUser struct {
	AccountID AccountID `json:"accountId"`
	Platform  string    `json:"platform"`
}
