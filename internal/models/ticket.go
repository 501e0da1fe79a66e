package models

import "time"

type Ticket struct {
	TicketID         string     `json:"ticket_id"`
	TicketCode       string     `json:"ticket_code"`
	TenantID         string     `json:"tenant_id,omitempty"`
	ServiceID        string     `json:"service_id,omitempty"`
	ServiceName      string     `json:"service_name,omitempty"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	IssuedAt         time.Time  `json:"issued_at"`
	RequestID        string     `json:"request_id,omitempty"`
	CalledAt         *time.Time `json:"called_at,omitempty"`
	ServiceStartedAt *time.Time `json:"service_started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	OperatorID       *string    `json:"operator_id,omitempty"`
	OperatorName     *string    `json:"operator_name,omitempty"`
	CounterID        *string    `json:"counter_id,omitempty"`
	CounterName      *string    `json:"counter_name,omitempty"`
	RecallCount      int        `json:"recall_count"`
}

const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusInService = "in_service"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
	StatusCancelled = "cancelled"
)

const (
	PriorityNormal       = "normal"
	PriorityPreferential = "preferential"
)
