package ws

import "time"

// ConnInfo describes one websocket connection for event reporting.
type ConnInfo struct {
	ConnID      string
	EmployeeID  int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
