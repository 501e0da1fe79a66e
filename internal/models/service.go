package models

type Service struct {
	ServiceID    string `json:"service_id"`
	TenantID     string `json:"tenant_id"`
	Name         string `json:"name"`
	TicketPrefix string `json:"ticket_prefix"`
	PriorityMode bool   `json:"priority_mode,omitempty"`
	Active       bool   `json:"active"`
}

// TenantProfile carries the per-tenant announcement settings managed by the
// admin surface. The engine only reads them.
type TenantProfile struct {
	TenantID   string  `json:"tenant_id"`
	Name       string  `json:"name"`
	TTSEnabled bool    `json:"tts_enabled"`
	TTSVoice   string  `json:"tts_voice"`
	TTSSpeed   float64 `json:"tts_speed"`
	TTSVolume  float64 `json:"tts_volume"`
}

// StateSnapshot is the connect-time payload for displays: everything a panel
// needs to render before the first live event arrives.
type StateSnapshot struct {
	Current []Ticket `json:"current_calls"`
	Waiting []Ticket `json:"waiting_queue"`
	History []Ticket `json:"history"`
}
