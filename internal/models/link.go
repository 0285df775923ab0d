package models

import "time"

// LinkStatus is the connection state of a byte-stream endpoint.
type LinkStatus string

const (
	LinkDisconnected LinkStatus = "DISCONNECTED"
	LinkConnecting   LinkStatus = "CONNECTING"
	LinkConnected    LinkStatus = "CONNECTED"
)

// LinkState is owned by the link worker; everyone else gets copies.
type LinkState struct {
	Port                 string     `json:"port"`
	Status               LinkStatus `json:"status"`
	ConsecutiveErrors    int        `json:"consecutive_errors"`
	LastSuccessfulRead   time.Time  `json:"last_successful_read"`
	LastReconnectAttempt time.Time  `json:"last_reconnect_attempt"`
	Reconnects           int        `json:"reconnects"`
}
