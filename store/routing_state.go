package store

// RoutingState records the currently active specialist for a session and the
// reason it was chosen. Created at session start, updated at most once per
// turn. Refresh races are resolved last-writer-wins.
type RoutingState struct {
	SessionID   string `json:"session_id"`
	ActiveAgent string `json:"active_agent"`
	Reason      string `json:"reason"`
	UpdatedTs   int64  `json:"updated_ts"`
}
