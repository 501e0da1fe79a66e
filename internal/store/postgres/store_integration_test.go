package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/InnersoftTecnologia/chama-ja/internal/models"
	"github.com/InnersoftTecnologia/chama-ja/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestEmitTicketSequence(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	first := emitTicket(t, ctx, st, tenantID, serviceID, day)
	second := emitTicket(t, ctx, st, tenantID, serviceID, day.Add(time.Minute))

	if first.Ticket.TicketCode != "A-001" {
		t.Fatalf("expected A-001, got %s", first.Ticket.TicketCode)
	}
	if second.Ticket.TicketCode != "A-002" {
		t.Fatalf("expected A-002, got %s", second.Ticket.TicketCode)
	}
	if first.Position != 1 || second.Position != 2 {
		t.Fatalf("expected positions 1 and 2, got %d and %d", first.Position, second.Position)
	}

	nextDay := emitTicket(t, ctx, st, tenantID, serviceID, day.AddDate(0, 0, 1))
	if nextDay.Ticket.TicketCode != "A-001" {
		t.Fatalf("expected fresh A-001 after rollover, got %s", nextDay.Ticket.TicketCode)
	}
}

func TestEmitTicketConcurrentSequence(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	const workers = 8
	var wg sync.WaitGroup
	codes := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := st.EmitTicket(ctx, store.EmitTicketInput{
				TenantID:  tenantID,
				ServiceID: serviceID,
				IssuedAt:  time.Now().UTC(),
			})
			if err != nil {
				t.Errorf("emit: %v", err)
				return
			}
			codes <- result.Ticket.TicketCode
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		if seen[code] {
			t.Fatalf("duplicate ticket code %s", code)
		}
		seen[code] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d distinct codes, got %d", workers, len(seen))
	}
}

func TestEmitTicketIdempotency(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	requestID := uuid.NewString()
	first, err := st.EmitTicket(ctx, store.EmitTicketInput{
		RequestID: requestID,
		TenantID:  tenantID,
		ServiceID: serviceID,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	second, err := st.EmitTicket(ctx, store.EmitTicketInput{
		RequestID: requestID,
		TenantID:  tenantID,
		ServiceID: serviceID,
	})
	if err != nil {
		t.Fatalf("replay emit: %v", err)
	}
	if first.Ticket.TicketID != second.Ticket.TicketID {
		t.Fatalf("expected same ticket for duplicate request")
	}
	if !second.Replayed {
		t.Fatalf("expected replay flag on duplicate request")
	}
}

func TestEmitTicketIdempotencyScopedPerTenant(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantA := seedTenant(t, ctx, pool)
	serviceA := seedService(t, ctx, pool, tenantA, "Caixa", "A", false)
	tenantB := seedTenant(t, ctx, pool)
	serviceB := seedService(t, ctx, pool, tenantB, "Caixa", "A", false)

	requestID := uuid.NewString()
	first, err := st.EmitTicket(ctx, store.EmitTicketInput{
		RequestID: requestID,
		TenantID:  tenantA,
		ServiceID: serviceA,
	})
	if err != nil {
		t.Fatalf("tenant A emit: %v", err)
	}

	// The same request_id from another tenant is a new emission, never a
	// replay of the other tenant's ticket.
	second, err := st.EmitTicket(ctx, store.EmitTicketInput{
		RequestID: requestID,
		TenantID:  tenantB,
		ServiceID: serviceB,
	})
	if err != nil {
		t.Fatalf("tenant B emit: %v", err)
	}
	if second.Replayed {
		t.Fatal("cross-tenant request_id must not replay")
	}
	if second.Ticket.TicketID == first.Ticket.TicketID {
		t.Fatal("expected distinct tickets per tenant")
	}
	if second.Ticket.TenantID != tenantB {
		t.Fatalf("expected tenant B ticket, got tenant %s", second.Ticket.TenantID)
	}
	if second.Ticket.TicketCode != "A-001" {
		t.Fatalf("expected tenant B to start its own sequence, got %s", second.Ticket.TicketCode)
	}
}

func TestCallNextPriorityOrder(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	base := time.Now().UTC().Add(-time.Hour)
	oldNormal := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityNormal, base)
	oldPreferential := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityPreferential, base.Add(10*time.Minute))
	newPreferential := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityPreferential, base.Add(20*time.Minute))

	got := callNext(t, ctx, st, tenantID)
	if got.TicketID != oldPreferential.TicketID {
		t.Fatalf("expected oldest preferential first, got %s", got.TicketCode)
	}
	got = callNext(t, ctx, st, tenantID)
	if got.TicketID != newPreferential.TicketID {
		t.Fatalf("expected second preferential, got %s", got.TicketCode)
	}
	got = callNext(t, ctx, st, tenantID)
	if got.TicketID != oldNormal.TicketID {
		t.Fatalf("expected normal last, got %s", got.TicketCode)
	}

	if _, err := st.CallNext(ctx, store.CallNextInput{TenantID: tenantID}); !errors.Is(err, store.ErrNoTicket) {
		t.Fatalf("expected ErrNoTicket on empty queue, got %v", err)
	}
}

func TestCallNextServiceFilter(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	caixaID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)
	triagemID := seedService(t, ctx, pool, tenantID, "Triagem", "T", false)

	base := time.Now().UTC().Add(-time.Hour)
	emitWithPriority(t, ctx, st, tenantID, caixaID, models.PriorityNormal, base)
	triagem := emitWithPriority(t, ctx, st, tenantID, triagemID, models.PriorityNormal, base.Add(time.Minute))

	got, err := st.CallNext(ctx, store.CallNextInput{TenantID: tenantID, ServiceIDs: []string{triagemID}})
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if got.TicketID != triagem.TicketID {
		t.Fatalf("expected triagem ticket despite older caixa one, got %s", got.TicketCode)
	}
}

func TestCallNextConcurrency(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	emitTicket(t, ctx, st, tenantID, serviceID, time.Time{})
	emitTicket(t, ctx, st, tenantID, serviceID, time.Time{})

	var wg sync.WaitGroup
	results := make(chan models.Ticket, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(counter string) {
			defer wg.Done()
			ticket, err := st.CallNext(ctx, store.CallNextInput{TenantID: tenantID, CounterName: counter})
			if err != nil {
				t.Errorf("call next: %v", err)
				return
			}
			results <- ticket
		}(fmt.Sprintf("Guichê %d", i+1))
	}
	wg.Wait()
	close(results)

	var ids []string
	for ticket := range results {
		ids = append(ids, ticket.TicketID)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 claimed tickets, got %d", len(ids))
	}
	if ids[0] == ids[1] {
		t.Fatalf("expected distinct tickets, got %s twice", ids[0])
	}
}

func TestCallNextSingleTicketRace(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)
	emitTicket(t, ctx, st, tenantID, serviceID, time.Time{})

	const racers = 4
	var wg sync.WaitGroup
	outcomes := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.CallNext(ctx, store.CallNextInput{TenantID: tenantID})
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	successes := 0
	for err := range outcomes {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrClaimConflict), errors.Is(err, store.ErrNoTicket):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 successful claim, got %d", successes)
	}
}

func TestCallSpecificTicket(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	base := time.Now().UTC().Add(-time.Hour)
	older := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityNormal, base)
	target := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityNormal, base.Add(time.Minute))

	called, err := st.CallTicket(ctx, store.CallTicketInput{
		TenantID:    tenantID,
		TicketID:    target.TicketID,
		CounterName: "Guichê 1",
	})
	if err != nil {
		t.Fatalf("call ticket: %v", err)
	}
	if called.Status != models.StatusCalled || called.CalledAt == nil {
		t.Fatalf("expected called with timestamp, got %+v", called)
	}
	if called.CounterName == nil || *called.CounterName != "Guichê 1" {
		t.Fatalf("expected counter binding, got %+v", called.CounterName)
	}

	if _, err := st.CallTicket(ctx, store.CallTicketInput{TenantID: tenantID, TicketID: target.TicketID}); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState calling a called ticket, got %v", err)
	}
	if _, err := st.CallTicket(ctx, store.CallTicketInput{TenantID: tenantID, TicketID: uuid.NewString()}); !errors.Is(err, store.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound for unknown ticket, got %v", err)
	}

	// The skipped older ticket is still first in line for call-next.
	next := callNext(t, ctx, st, tenantID)
	if next.TicketID != older.TicketID {
		t.Fatalf("expected skipped ticket next, got %s", next.TicketCode)
	}
}

func TestSnapshotComposition(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	base := time.Now().UTC().Add(-time.Hour)
	finished := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityNormal, base)
	inService := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityPreferential, base.Add(time.Minute))
	waitingNormal := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityNormal, base.Add(2*time.Minute))

	// Preferential first, then the oldest normal; the second normal stays put.
	got := callNext(t, ctx, st, tenantID)
	if got.TicketID != inService.TicketID {
		t.Fatalf("expected preferential ticket first, got %s", got.TicketCode)
	}
	if _, err := st.StartService(ctx, store.TicketActionInput{TenantID: tenantID, TicketID: inService.TicketID}); err != nil {
		t.Fatalf("start: %v", err)
	}

	got = callNext(t, ctx, st, tenantID)
	if got.TicketID != finished.TicketID {
		t.Fatalf("expected oldest normal ticket, got %s", got.TicketCode)
	}
	action := store.TicketActionInput{TenantID: tenantID, TicketID: finished.TicketID}
	if _, err := st.StartService(ctx, action); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := st.CompleteTicket(ctx, action); err != nil {
		t.Fatalf("complete: %v", err)
	}

	waitingPref := emitWithPriority(t, ctx, st, tenantID, serviceID, models.PriorityPreferential, base.Add(3*time.Minute))

	snap, err := st.Snapshot(ctx, tenantID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Current) != 1 || snap.Current[0].TicketID != inService.TicketID {
		t.Fatalf("expected only the in-service ticket current, got %+v", snap.Current)
	}
	if len(snap.Waiting) != 2 {
		t.Fatalf("expected 2 waiting tickets, got %d", len(snap.Waiting))
	}
	if snap.Waiting[0].TicketID != waitingPref.TicketID || snap.Waiting[1].TicketID != waitingNormal.TicketID {
		t.Fatalf("waiting queue out of order: %s, %s", snap.Waiting[0].TicketCode, snap.Waiting[1].TicketCode)
	}
	if len(snap.History) != 1 || snap.History[0].TicketID != finished.TicketID {
		t.Fatalf("expected completed ticket in history, got %+v", snap.History)
	}
	if snap.History[0].Status != models.StatusCompleted {
		t.Fatalf("expected completed status in history, got %s", snap.History[0].Status)
	}
}

func TestTicketLifecycle(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)
	emitTicket(t, ctx, st, tenantID, serviceID, time.Time{})

	called, err := st.CallNext(ctx, store.CallNextInput{
		TenantID:     tenantID,
		OperatorName: "Maria",
		CounterName:  "Guichê 3",
	})
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if called.Status != models.StatusCalled || called.CalledAt == nil {
		t.Fatalf("expected called with timestamp, got %+v", called)
	}
	if called.CounterName == nil || *called.CounterName != "Guichê 3" {
		t.Fatalf("expected counter binding, got %+v", called.CounterName)
	}

	action := store.TicketActionInput{TenantID: tenantID, TicketID: called.TicketID}

	// in_service requires called first; completing now must fail untouched.
	if _, err := st.CompleteTicket(ctx, action); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState completing a called ticket, got %v", err)
	}

	started, err := st.StartService(ctx, action)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.StatusInService || started.ServiceStartedAt == nil {
		t.Fatalf("expected in_service with timestamp, got %+v", started)
	}

	if _, err := st.NoShowTicket(ctx, action); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for no-show after start, got %v", err)
	}

	completed, err := st.CompleteTicket(ctx, action)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected completed with timestamp, got %+v", completed)
	}

	// Terminal: nothing else may move it.
	if _, err := st.CancelTicket(ctx, action); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState cancelling a completed ticket, got %v", err)
	}
	if _, err := st.RecallTicket(ctx, action); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState recalling a completed ticket, got %v", err)
	}
}

func TestRecallTicket(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)
	emitTicket(t, ctx, st, tenantID, serviceID, time.Time{})

	called := callNext(t, ctx, st, tenantID)
	recalled, err := st.RecallTicket(ctx, store.TicketActionInput{TenantID: tenantID, TicketID: called.TicketID})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if recalled.RecallCount != 1 {
		t.Fatalf("expected recall_count 1, got %d", recalled.RecallCount)
	}
	if recalled.Status != models.StatusCalled {
		t.Fatalf("recall must not change status, got %s", recalled.Status)
	}

	var createdEvents int
	row := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE type = $1`, store.EventTicketCreated)
	if err := row.Scan(&createdEvents); err != nil {
		t.Fatalf("count events: %v", err)
	}
	// One from the call, one from the recall.
	if createdEvents != 2 {
		t.Fatalf("expected 2 call events, got %d", createdEvents)
	}
}

func TestCompleteEmitsEvent(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)
	emitTicket(t, ctx, st, tenantID, serviceID, time.Time{})

	called := callNext(t, ctx, st, tenantID)
	action := store.TicketActionInput{TenantID: tenantID, TicketID: called.TicketID}
	if _, err := st.StartService(ctx, action); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := st.CompleteTicket(ctx, action); err != nil {
		t.Fatalf("complete: %v", err)
	}

	events, err := st.ListOutboxEvents(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != store.EventTicketCreated || events[1].Type != store.EventTicketCompleted {
		t.Fatalf("unexpected event order: %s, %s", events[0].Type, events[1].Type)
	}
}

func TestResetSequences(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	serviceID := seedService(t, ctx, pool, tenantID, "Caixa", "A", false)

	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	emitTicket(t, ctx, st, tenantID, serviceID, day)
	emitTicket(t, ctx, st, tenantID, serviceID, day)

	removed, err := st.ResetSequences(ctx, tenantID, day)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 sequence row removed, got %d", removed)
	}
}

func TestGetSessionExpiry(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	tenantID := seedTenant(t, ctx, pool)
	valid := seedSession(t, ctx, pool, tenantID, "operator", time.Now().UTC().Add(time.Hour))
	expired := seedSession(t, ctx, pool, tenantID, "operator", time.Now().UTC().Add(-time.Hour))

	if _, err := st.GetSession(ctx, valid); err != nil {
		t.Fatalf("valid session: %v", err)
	}
	if _, err := st.GetSession(ctx, expired); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired session, got %v", err)
	}
	if _, err := st.GetSession(ctx, "nope"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown token, got %v", err)
	}
}

func emitTicket(t *testing.T, ctx context.Context, st *Store, tenantID, serviceID string, issuedAt time.Time) store.EmitResult {
	t.Helper()
	result, err := st.EmitTicket(ctx, store.EmitTicketInput{
		TenantID:  tenantID,
		ServiceID: serviceID,
		IssuedAt:  issuedAt,
	})
	if err != nil {
		t.Fatalf("emit ticket: %v", err)
	}
	return result
}

func emitWithPriority(t *testing.T, ctx context.Context, st *Store, tenantID, serviceID, priority string, issuedAt time.Time) models.Ticket {
	t.Helper()
	result, err := st.EmitTicket(ctx, store.EmitTicketInput{
		TenantID:  tenantID,
		ServiceID: serviceID,
		Priority:  priority,
		IssuedAt:  issuedAt,
	})
	if err != nil {
		t.Fatalf("emit ticket: %v", err)
	}
	return result.Ticket
}

func callNext(t *testing.T, ctx context.Context, st *Store, tenantID string) models.Ticket {
	t.Helper()
	ticket, err := st.CallNext(ctx, store.CallNextInput{TenantID: tenantID})
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	return ticket
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	st := NewStore(pool, Options{})
	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return st, pool, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return err
		}
	}
	return nil
}

func seedTenant(t *testing.T, ctx context.Context, pool *pgxpool.Pool) string {
	t.Helper()
	tenantID := uuid.NewString()
	if _, err := pool.Exec(ctx, `
		INSERT INTO tenants (tenant_id, name) VALUES ($1, 'Clínica Exemplo')
	`, tenantID); err != nil {
		t.Fatalf("insert tenant: %v", err)
	}
	return tenantID
}

func seedService(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, name, prefix string, priorityMode bool) string {
	t.Helper()
	serviceID := uuid.NewString()
	if _, err := pool.Exec(ctx, `
		INSERT INTO services (service_id, tenant_id, name, ticket_prefix, priority_mode, active)
		VALUES ($1, $2, $3, $4, $5, true)
	`, serviceID, tenantID, name, prefix, priorityMode); err != nil {
		t.Fatalf("insert service: %v", err)
	}
	return serviceID
}

func seedSession(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, role string, expiresAt time.Time) string {
	t.Helper()
	token := uuid.NewString()
	if _, err := pool.Exec(ctx, `
		INSERT INTO sessions (token, tenant_id, operator_id, operator_name, role, expires_at)
		VALUES ($1, $2, $3, 'Operadora', $4, $5)
	`, token, tenantID, uuid.NewString(), role, expiresAt); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return token
}
