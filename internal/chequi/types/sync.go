package types

// EnqueueRequest captures a scan taken while the device had no connectivity.
type EnqueueRequest struct {
	Payload          string `json:"payload"`
	ControlTypeID    string `json:"control_type_id"`
	EventID          string `json:"event_id"`
	DeviceLabel      string `json:"device_label"`
	CallerID         string `json:"caller_id"`
	CapturedAtMillis int64  `json:"captured_at_ms,omitempty"` // defaults to server time
}

type EnqueueResponse struct {
	Queued  bool `json:"queued"`
	Pending int  `json:"pending"`
}

// SyncReport summarizes one drain of the offline queue.
type SyncReport struct {
	Succeeded    int `json:"succeeded"`
	Denied       int `json:"denied"`
	StillPending int `json:"still_pending"`
}

type PendingResponse struct {
	Pending int `json:"pending"`
}

type DismissRequest struct {
	DeviceLabel string `json:"device_label"`
}
