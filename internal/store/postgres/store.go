package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/models"
	"github.com/InnersoftTecnologia/chama-ja/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketNumberPad = 3

const defaultCallAttempts = 3

type Store struct {
	pool         *pgxpool.Pool
	callAttempts int
}

type Options struct {
	// CallAttempts bounds the select-then-claim retry loop in CallNext.
	CallAttempts int
}

func NewStore(pool *pgxpool.Pool, options Options) *Store {
	attempts := options.CallAttempts
	if attempts <= 0 {
		attempts = defaultCallAttempts
	}
	return &Store{
		pool:         pool,
		callAttempts: attempts,
	}
}

func (s *Store) EmitTicket(ctx context.Context, input store.EmitTicketInput) (store.EmitResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.EmitResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findTicketByRequestID(ctx, tx, input.TenantID, input.RequestID)
	if err != nil {
		return store.EmitResult{}, err
	}
	if found {
		position, perr := queuePosition(ctx, tx, existing)
		if perr != nil {
			position = 0
		}
		if err = tx.Commit(ctx); err != nil {
			return store.EmitResult{}, err
		}
		return store.EmitResult{Ticket: existing, Position: position, Replayed: true}, nil
	}

	service, err := lookupService(ctx, tx, input.TenantID, input.ServiceID)
	if err != nil {
		return store.EmitResult{}, err
	}
	if !service.Active {
		err = store.ErrServiceInactive
		return store.EmitResult{}, err
	}

	priority, err := resolvePriority(service, input.Priority)
	if err != nil {
		return store.EmitResult{}, err
	}

	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	seq, err := nextTicketNumber(ctx, tx, input.TenantID, service.TicketPrefix, issuedAt)
	if err != nil {
		return store.EmitResult{}, err
	}
	ticketCode := fmt.Sprintf("%s-%0*d", service.TicketPrefix, ticketNumberPad, seq)

	ticketID := uuid.NewString()
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		INSERT INTO tickets (
			ticket_id, request_id, tenant_id, service_id, service_name,
			ticket_code, seq_date, priority, status, issued_at, recall_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,0)
		ON CONFLICT (tenant_id, request_id) DO NOTHING
		RETURNING `+ticketColumns,
		ticketID, nullIfEmpty(input.RequestID), input.TenantID, input.ServiceID, service.Name,
		ticketCode, issuedAt.Format("2006-01-02"), priority, models.StatusWaiting, issuedAt)
	ticket, err = scanTicket(row)
	if err != nil {
		// Zero rows means another emission with the same request_id won the
		// race; answer with the winner's ticket.
		if errors.Is(err, pgx.ErrNoRows) && input.RequestID != "" {
			winner, found, ferr := findTicketByRequestID(ctx, tx, input.TenantID, input.RequestID)
			if ferr == nil && found {
				position, perr := queuePosition(ctx, tx, winner)
				if perr != nil {
					position = 0
				}
				if err = tx.Commit(ctx); err != nil {
					return store.EmitResult{}, err
				}
				return store.EmitResult{Ticket: winner, Position: position, Replayed: true}, nil
			}
		}
		return store.EmitResult{}, err
	}

	position, err := queuePosition(ctx, tx, ticket)
	if err != nil {
		return store.EmitResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.EmitResult{}, err
	}

	// Audit trail only. A failed insert must never undo the emission.
	if auditErr := s.recordPrintJob(ctx, ticket); auditErr != nil {
		log.Printf("print audit for ticket %s: %v", ticket.TicketID, auditErr)
	}

	return store.EmitResult{Ticket: ticket, Position: position}, nil
}

func (s *Store) GetTicket(ctx context.Context, tenantID, ticketID string) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE tenant_id = $1 AND ticket_id = $2
	`, tenantID, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

// CallNext selects the next eligible waiting ticket and claims it with a
// conditional update. A lost race re-runs selection up to callAttempts times;
// losing every attempt reports ErrClaimConflict so the operator re-triggers,
// while an empty queue on the first attempt reports ErrNoTicket.
func (s *Store) CallNext(ctx context.Context, input store.CallNextInput) (models.Ticket, error) {
	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	raced := false
	for attempt := 0; attempt < s.callAttempts; attempt++ {
		ticket, err := s.claimNext(ctx, input, calledAt)
		if err == nil {
			return ticket, nil
		}
		if errors.Is(err, store.ErrClaimConflict) {
			raced = true
			continue
		}
		if errors.Is(err, store.ErrNoTicket) && raced {
			return models.Ticket{}, store.ErrClaimConflict
		}
		return models.Ticket{}, err
	}
	return models.Ticket{}, store.ErrClaimConflict
}

func (s *Store) claimNext(ctx context.Context, input store.CallNextInput, calledAt time.Time) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	candidateID, err := selectNextTicketID(ctx, tx, input.TenantID, input.ServiceIDs)
	if err != nil {
		return models.Ticket{}, err
	}

	var ticket models.Ticket
	ticket, err = claimTicket(ctx, tx, input.TenantID, candidateID, calledAt,
		input.OperatorID, input.OperatorName, input.CounterID, input.CounterName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrClaimConflict
		}
		return models.Ticket{}, err
	}

	if err = insertOutboxEvent(ctx, tx, input.TenantID, store.EventTicketCreated, ticket); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

// CallTicket claims one specific waiting ticket, bypassing queue order. The
// same conditional update backs it, so a ticket that is no longer waiting is
// never touched.
func (s *Store) CallTicket(ctx context.Context, input store.CallTicketInput) (models.Ticket, error) {
	calledAt := input.CalledAt
	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ticket models.Ticket
	ticket, err = claimTicket(ctx, tx, input.TenantID, input.TicketID, calledAt,
		input.OperatorID, input.OperatorName, input.CounterID, input.CounterName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = s.explainMissedUpdate(ctx, tx, store.TicketActionInput{
				TenantID: input.TenantID,
				TicketID: input.TicketID,
			}, store.AllowedSources("call_next"))
		}
		return models.Ticket{}, err
	}

	if err = insertOutboxEvent(ctx, tx, input.TenantID, store.EventTicketCreated, ticket); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func claimTicket(ctx context.Context, tx pgx.Tx, tenantID, ticketID string, calledAt time.Time, operatorID, operatorName, counterID, counterName string) (models.Ticket, error) {
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1,
			called_at = $2,
			operator_id = $3,
			operator_name = $4,
			counter_id = $5,
			counter_name = $6,
			recall_count = 0
		WHERE ticket_id = $7 AND tenant_id = $8 AND status = $9
		RETURNING `+ticketColumns,
		models.StatusCalled, calledAt, nullIfEmpty(operatorID), nullIfEmpty(operatorName),
		nullIfEmpty(counterID), nullIfEmpty(counterName), ticketID, tenantID, models.StatusWaiting)
	return scanTicket(row)
}

// RecallTicket re-announces a ticket that is already called or in service.
// Status and timestamps stay as they are; only recall_count moves.
func (s *Store) RecallTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	allowed := store.AllowedSources("recall")
	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		UPDATE tickets
		SET recall_count = recall_count + 1
		WHERE ticket_id = $1 AND tenant_id = $2 AND status = ANY($3)
		RETURNING `+ticketColumns,
		input.TicketID, input.TenantID, allowed)
	ticket, err = scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = s.explainMissedUpdate(ctx, tx, input, allowed)
		}
		return models.Ticket{}, err
	}

	if err = insertOutboxEvent(ctx, tx, input.TenantID, store.EventTicketCreated, ticket); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) StartService(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.updateTicketStatus(ctx, input, "start", models.StatusInService, "service_started_at", "")
}

func (s *Store) CompleteTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.updateTicketStatus(ctx, input, "complete", models.StatusCompleted, "completed_at", store.EventTicketCompleted)
}

func (s *Store) NoShowTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.updateTicketStatus(ctx, input, "no_show", models.StatusNoShow, "completed_at", "")
}

func (s *Store) CancelTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.updateTicketStatus(ctx, input, "cancel", models.StatusCancelled, "cancelled_at", "")
}

// updateTicketStatus performs the one-row conditional transition shared by
// start/complete/no-show/cancel. The WHERE clause carries the allowed source
// statuses, so a concurrent transition simply matches zero rows; the fallback
// load distinguishes an unknown ticket from a wrong-state one.
func (s *Store) updateTicketStatus(ctx context.Context, input store.TicketActionInput, action, toStatus, timestampColumn, eventType string) (models.Ticket, error) {
	allowed := store.AllowedSources(action)
	if len(allowed) == 0 {
		return models.Ticket{}, store.ErrInvalidState
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	updateQuery := `
		UPDATE tickets
		SET status = $1
	`
	args := []interface{}{toStatus}
	argPos := 2

	if timestampColumn != "" {
		updateQuery += fmt.Sprintf(", %s = $%d", timestampColumn, argPos)
		args = append(args, occurredAt)
		argPos++
	}

	updateQuery += fmt.Sprintf(`
		WHERE ticket_id = $%d AND tenant_id = $%d AND status = ANY($%d)`, argPos, argPos+1, argPos+2)
	args = append(args, input.TicketID, input.TenantID, allowed)

	updateQuery += " RETURNING " + ticketColumns

	var ticket models.Ticket
	row := tx.QueryRow(ctx, updateQuery, args...)
	ticket, err = scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = s.explainMissedUpdate(ctx, tx, input, allowed)
		}
		return models.Ticket{}, err
	}

	if eventType != "" {
		if err = insertOutboxEvent(ctx, tx, input.TenantID, eventType, ticket); err != nil {
			return models.Ticket{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) explainMissedUpdate(ctx context.Context, tx pgx.Tx, input store.TicketActionInput, allowed []string) error {
	state, exists, err := loadTicketState(ctx, tx, input.TicketID, input.TenantID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrTicketNotFound
	}
	for _, status := range allowed {
		if state == status {
			// Matched state but zero rows updated: lost a race mid-flight.
			return store.ErrClaimConflict
		}
	}
	return store.ErrInvalidState
}

func (s *Store) ListWaiting(ctx context.Context, tenantID string, serviceIDs []string, limit int) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE tenant_id = $1 AND status = $2
	`
	args := []interface{}{tenantID, models.StatusWaiting}
	if len(serviceIDs) > 0 {
		query += " AND service_id = ANY($3)"
		args = append(args, serviceIDs)
	}
	query += fmt.Sprintf(`
		ORDER BY (priority = '%s') DESC, issued_at ASC
		LIMIT %d`, models.PriorityPreferential, normalizeLimit(limit, 50))

	return s.queryTickets(ctx, query, args...)
}

func (s *Store) ListInService(ctx context.Context, tenantID string, limit int) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE tenant_id = $1 AND status = ANY($2)
		ORDER BY called_at DESC NULLS LAST
		LIMIT ` + fmt.Sprint(normalizeLimit(limit, 20))
	return s.queryTickets(ctx, query, tenantID, []string{models.StatusCalled, models.StatusInService})
}

func (s *Store) ListHistory(ctx context.Context, tenantID string, limit int) ([]models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE tenant_id = $1 AND status = ANY($2)
		ORDER BY COALESCE(completed_at, cancelled_at, issued_at) DESC
		LIMIT ` + fmt.Sprint(normalizeLimit(limit, 10))
	return s.queryTickets(ctx, query, tenantID, []string{models.StatusCompleted, models.StatusNoShow, models.StatusCancelled})
}

// Snapshot builds the connect-time payload for a new display subscriber.
func (s *Store) Snapshot(ctx context.Context, tenantID string) (models.StateSnapshot, error) {
	current, err := s.ListInService(ctx, tenantID, 20)
	if err != nil {
		return models.StateSnapshot{}, err
	}
	waiting, err := s.ListWaiting(ctx, tenantID, nil, 20)
	if err != nil {
		return models.StateSnapshot{}, err
	}
	history, err := s.ListHistory(ctx, tenantID, 10)
	if err != nil {
		return models.StateSnapshot{}, err
	}
	return models.StateSnapshot{Current: current, Waiting: waiting, History: history}, nil
}

// ResetSequences drops the tenant's sequence rows for the given date so the
// next emission starts over at 1. Maintenance only; existing tickets keep
// their codes.
func (s *Store) ResetSequences(ctx context.Context, tenantID string, date time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM ticket_sequences
		WHERE tenant_id = $1 AND seq_date = $2
	`, tenantID, date.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, afterID int64, limit int) ([]store.OutboxEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, tenant_id, type, payload_json, created_at
		FROM outbox_events
		WHERE event_id > $1
		ORDER BY event_id ASC
		LIMIT $2
	`, afterID, normalizeLimit(limit, 100))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.TenantID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) LatestOutboxEventID(ctx context.Context) (int64, error) {
	var latest int64
	row := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(event_id), 0) FROM outbox_events`)
	if err := row.Scan(&latest); err != nil {
		return 0, err
	}
	return latest, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT token, operator_id, operator_name, tenant_id, role, expires_at
		FROM sessions
		WHERE token = $1
	`, token)
	if err := row.Scan(&session.Token, &session.OperatorID, &session.OperatorName, &session.TenantID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(time.Now().UTC()) {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) GetTenantProfile(ctx context.Context, tenantID string) (models.TenantProfile, error) {
	var profile models.TenantProfile
	row := s.pool.QueryRow(ctx, `
		SELECT tenant_id, name, tts_enabled, tts_voice, tts_speed, tts_volume
		FROM tenants
		WHERE tenant_id = $1
	`, tenantID)
	if err := row.Scan(&profile.TenantID, &profile.Name, &profile.TTSEnabled, &profile.TTSVoice, &profile.TTSSpeed, &profile.TTSVolume); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TenantProfile{}, store.ErrTenantNotFound
		}
		return models.TenantProfile{}, err
	}
	return profile, nil
}

// selectNextTicketID applies the queue policy: every waiting preferential
// ticket goes before any normal one, FIFO by issued_at within a class.
func selectNextTicketID(ctx context.Context, tx pgx.Tx, tenantID string, serviceIDs []string) (string, error) {
	query := `
		SELECT ticket_id
		FROM tickets
		WHERE tenant_id = $1 AND status = $2
	`
	args := []interface{}{tenantID, models.StatusWaiting}
	if len(serviceIDs) > 0 {
		query += " AND service_id = ANY($3)"
		args = append(args, serviceIDs)
	}
	query += fmt.Sprintf(`
		ORDER BY (priority = '%s') DESC, issued_at ASC
		LIMIT 1`, models.PriorityPreferential)

	var ticketID string
	row := tx.QueryRow(ctx, query, args...)
	if err := row.Scan(&ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNoTicket
		}
		return "", err
	}
	return ticketID, nil
}

func lookupService(ctx context.Context, tx pgx.Tx, tenantID, serviceID string) (models.Service, error) {
	var service models.Service
	row := tx.QueryRow(ctx, `
		SELECT service_id, tenant_id, name, ticket_prefix, priority_mode, active
		FROM services
		WHERE tenant_id = $1 AND service_id = $2
	`, tenantID, serviceID)
	if err := row.Scan(&service.ServiceID, &service.TenantID, &service.Name, &service.TicketPrefix, &service.PriorityMode, &service.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, store.ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return service, nil
}

func resolvePriority(service models.Service, requested string) (string, error) {
	if service.PriorityMode {
		return models.PriorityPreferential, nil
	}
	switch requested {
	case "":
		return models.PriorityNormal, nil
	case models.PriorityNormal, models.PriorityPreferential:
		return requested, nil
	}
	return "", store.ErrInvalidPriority
}

func nextTicketNumber(ctx context.Context, tx pgx.Tx, tenantID, prefix string, issuedAt time.Time) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO ticket_sequences (tenant_id, prefix, seq_date, next_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, prefix, seq_date)
		DO UPDATE SET next_number = ticket_sequences.next_number + 1
		RETURNING next_number
	`, tenantID, prefix, issuedAt.Format("2006-01-02"))
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// queuePosition is 1-based: tickets of a higher class or the same class with
// an earlier issue time are ahead.
func queuePosition(ctx context.Context, tx pgx.Tx, ticket models.Ticket) (int, error) {
	if ticket.Status != models.StatusWaiting {
		return 0, nil
	}
	var ahead int
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM tickets
		WHERE tenant_id = $1 AND status = $2
			AND ((priority = '%[1]s') > (CAST($3 AS text) = '%[1]s')
				OR ((priority = '%[1]s') = (CAST($3 AS text) = '%[1]s') AND issued_at < $4))
	`, models.PriorityPreferential), ticket.TenantID, models.StatusWaiting, ticket.Priority, ticket.IssuedAt)
	if err := row.Scan(&ahead); err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, tenantID, eventType string, ticket models.Ticket) error {
	payloadJSON, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (tenant_id, type, payload_json, created_at)
		VALUES ($1, $2, $3, $4)
	`, tenantID, eventType, payloadJSON, time.Now().UTC())
	return err
}

func (s *Store) recordPrintJob(ctx context.Context, ticket models.Ticket) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ticket_print_jobs (job_id, tenant_id, ticket_id, ticket_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), ticket.TenantID, ticket.TicketID, ticket.TicketCode, time.Now().UTC())
	return err
}

func findTicketByRequestID(ctx context.Context, tx pgx.Tx, tenantID, requestID string) (models.Ticket, bool, error) {
	if requestID == "" {
		return models.Ticket{}, false, nil
	}
	row := tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE tenant_id = $1 AND request_id = $2
	`, tenantID, requestID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func loadTicketState(ctx context.Context, tx pgx.Tx, ticketID, tenantID string) (string, bool, error) {
	var status string
	row := tx.QueryRow(ctx, `
		SELECT status
		FROM tickets
		WHERE ticket_id = $1 AND tenant_id = $2
	`, ticketID, tenantID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return status, true, nil
}

func (s *Store) queryTickets(ctx context.Context, query string, args ...interface{}) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

const ticketColumns = `ticket_id, ticket_code, tenant_id, service_id, service_name, priority, status,
	issued_at, request_id, called_at, service_started_at, completed_at, cancelled_at,
	operator_id, operator_name, counter_id, counter_name, recall_count`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var requestID sql.NullString
	var calledAt, startedAt, completedAt, cancelledAt sql.NullTime
	var operatorID, operatorName, counterID, counterName sql.NullString
	err := row.Scan(
		&ticket.TicketID, &ticket.TicketCode, &ticket.TenantID, &ticket.ServiceID, &ticket.ServiceName,
		&ticket.Priority, &ticket.Status, &ticket.IssuedAt, &requestID,
		&calledAt, &startedAt, &completedAt, &cancelledAt,
		&operatorID, &operatorName, &counterID, &counterName, &ticket.RecallCount)
	if err != nil {
		return models.Ticket{}, err
	}
	if requestID.Valid {
		ticket.RequestID = requestID.String
	}
	ticket.CalledAt = nullTimePtr(calledAt)
	ticket.ServiceStartedAt = nullTimePtr(startedAt)
	ticket.CompletedAt = nullTimePtr(completedAt)
	ticket.CancelledAt = nullTimePtr(cancelledAt)
	ticket.OperatorID = nullStringPtr(operatorID)
	ticket.OperatorName = nullStringPtr(operatorName)
	ticket.CounterID = nullStringPtr(counterID)
	ticket.CounterName = nullStringPtr(counterName)
	return ticket, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
