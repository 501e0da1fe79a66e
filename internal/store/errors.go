package store

import "errors"

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrNoTicket        = errors.New("no ticket available")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrInvalidState    = errors.New("invalid ticket state")
	ErrClaimConflict   = errors.New("ticket already claimed")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidPriority = errors.New("invalid priority class")
	ErrServiceInactive = errors.New("service inactive")
)
