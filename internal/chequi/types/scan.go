package types

import "time"

// ScanRequest is one decoded payload submitted by a scanning device.
// CapturedAtMillis and Signature are set only for scans replayed from the
// offline queue; live scans leave both zero and skip signature checking.
type ScanRequest struct {
	Payload          string `json:"payload"`
	ControlTypeID    string `json:"control_type_id"`
	EventID          string `json:"event_id"`
	DeviceLabel      string `json:"device_label"`
	CallerID         string `json:"caller_id"`
	CapturedAtMillis int64  `json:"captured_at_ms,omitempty"`
	Signature        string `json:"signature,omitempty"`
}

// OutcomeKind tags the closed ScanOutcome variant.
type OutcomeKind string

const (
	OutcomeAllowed          OutcomeKind = "allowed"
	OutcomeDenied           OutcomeKind = "denied"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeSignatureInvalid OutcomeKind = "signature_invalid"
	OutcomeProcessingFailed OutcomeKind = "processing_failed"
)

// DenyReason says why a scan was denied. Denial is an expected business
// outcome, not an error.
type DenyReason string

const (
	DenyBlocked            DenyReason = "blocked"
	DenyNotAuthorized      DenyReason = "not_authorized_for_control"
	DenyPrerequisiteNotMet DenyReason = "prerequisite_not_met"
	DenyLimitReached       DenyReason = "limit_reached"
)

// LastUsage enriches a limit-reached denial with the most recent prior use,
// so the operator can see when and where the credential was last accepted.
type LastUsage struct {
	UsedAt      time.Time `json:"used_at"`
	DeviceLabel string    `json:"device_label"`
}

// ScanOutcome is the engine's decision for one scan. Kind selects the
// variant; the remaining fields are populated per kind:
//
//   - allowed:            CredentialName, CurrentUses, MaxUses
//   - denied:             Reason, CurrentUses, MaxUses, PrerequisiteName
//     (prerequisite_not_met only), LastUsage (limit_reached only)
//   - not_found:          nothing else
//   - signature_invalid:  Detail (expired / future / mismatch)
//   - processing_failed:  Detail
type ScanOutcome struct {
	Kind             OutcomeKind `json:"kind"`
	CredentialName   string      `json:"credential_name,omitempty"`
	Reason           DenyReason  `json:"reason,omitempty"`
	PrerequisiteName string      `json:"prerequisite_name,omitempty"`
	CurrentUses      int         `json:"current_uses,omitempty"`
	MaxUses          int         `json:"max_uses,omitempty"`
	LastUsage        *LastUsage  `json:"last_usage,omitempty"`
	Detail           string      `json:"detail,omitempty"`
	ServerTime       string      `json:"server_time,omitempty"`
}

// Allowed reports whether the outcome permits entry.
func (o ScanOutcome) Allowed() bool { return o.Kind == OutcomeAllowed }
