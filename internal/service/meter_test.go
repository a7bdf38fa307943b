package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mhmtalitas/parkmeter/internal/auth"
	"github.com/mhmtalitas/parkmeter/internal/errs"
	"github.com/mhmtalitas/parkmeter/internal/model"
	"github.com/mhmtalitas/parkmeter/internal/storage"
)

type fakeClock struct{ now uint64 }

func (c *fakeClock) Now() uint64 { return c.now }

const (
	adminA   = model.Principal("GADMIN_A")
	adminB   = model.Principal("GADMIN_B")
	opAddr   = model.Principal("GOPERATOR")
	plate    = "34ABC1234"
	baseRate = model.Stroops(1_000_000)
)

func newMeter() (*MeterServiceImpl, *fakeClock) {
	clk := &fakeClock{now: 1000}
	return NewMeterService(storage.NewMemory(), auth.Context{}, clk), clk
}

// asCtx returns a context whose invocation was authorized by the given principals.
func asCtx(principals ...model.Principal) context.Context {
	ctx := context.Background()
	for _, p := range principals {
		ctx = auth.WithPrincipal(ctx, p)
	}
	return ctx
}

func mustSetup(t *testing.T, m *MeterServiceImpl, rate model.Stroops) {
	t.Helper()
	if err := m.Initialize(asCtx(adminA), adminA); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.RegisterOperator(asCtx(adminA), opAddr, "Kadıköy Lot", rate); err != nil {
		t.Fatalf("RegisterOperator: %v", err)
	}
}

func TestMeter_HappyPath(t *testing.T) {
	t.Parallel()
	m, clk := newMeter()
	mustSetup(t, m, baseRate)

	clk.now = 1000
	got, err := m.CreateEntry(asCtx(opAddr), opAddr, plate)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if got != plate {
		t.Fatalf("CreateEntry echo = %q, want %q", got, plate)
	}

	e, err := m.GetEntry(context.Background(), plate)
	if err != nil || e == nil {
		t.Fatalf("GetEntry: e=%v err=%v", e, err)
	}
	if e.EntryTime != 1000 || e.IsPaid || e.ExitTime != nil || e.PaymentAmount != nil {
		t.Fatalf("fresh entry malformed: %+v", e)
	}
	if e.OperatorAddress != opAddr || e.LicensePlate != plate {
		t.Fatalf("entry references wrong: %+v", e)
	}

	clk.now = 4600
	q, err := m.CalculateFee(context.Background(), plate)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if q.DurationSeconds != 3600 || q.Fee != 1_000_000 {
		t.Fatalf("quote = %+v, want {3600 1000000}", q)
	}

	if err := m.CompletePayment(context.Background(), plate, 1_000_000); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}
	e, err = m.GetEntry(context.Background(), plate)
	if err != nil || e == nil {
		t.Fatalf("GetEntry after payment: e=%v err=%v", e, err)
	}
	if !e.IsPaid || e.ExitTime == nil || *e.ExitTime != 4600 {
		t.Fatalf("settled entry malformed: %+v", e)
	}
	if e.PaymentAmount == nil || *e.PaymentAmount != 1_000_000 {
		t.Fatalf("payment amount not recorded: %+v", e)
	}
}

func TestMeter_DuplicateEntryRejected(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()
	mustSetup(t, m, baseRate)

	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("first CreateEntry: %v", err)
	}
	count, _ := m.GetTotalEntries(context.Background())

	_, err := m.CreateEntry(asCtx(opAddr), opAddr, plate)
	if !errors.Is(err, errs.ErrSessionActive) {
		t.Fatalf("want ErrSessionActive, got %v", err)
	}
	if err.Error() != "Vehicle already has an active parking session" {
		t.Fatalf("message drifted: %q", err.Error())
	}

	// the aborted attempt must not bump the counter
	after, err := m.GetTotalEntries(context.Background())
	if err != nil || after != count {
		t.Fatalf("counter changed by failed entry: %d -> %d (err=%v)", count, after, err)
	}
}

func TestMeter_OverwriteAfterPayment(t *testing.T) {
	t.Parallel()
	m, clk := newMeter()
	mustSetup(t, m, baseRate)

	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	clk.now = 2000
	if err := m.CompletePayment(context.Background(), plate, 10_000_000); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}

	// a paid slot may be reopened; prior record is lost
	clk.now = 3000
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry after payment: %v", err)
	}
	e, _ := m.GetEntry(context.Background(), plate)
	if e == nil || e.IsPaid || e.EntryTime != 3000 || e.ExitTime != nil {
		t.Fatalf("reopened entry malformed: %+v", e)
	}

	count, _ := m.GetTotalEntries(context.Background())
	if count != 2 {
		t.Fatalf("total entries = %d, want 2", count)
	}
}

func TestMeter_InsufficientPayment(t *testing.T) {
	t.Parallel()
	m, clk := newMeter()
	mustSetup(t, m, baseRate)

	clk.now = 1000
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	clk.now = 4600

	err := m.CompletePayment(context.Background(), plate, 500_000)
	if !errors.Is(err, errs.ErrInsufficientPayment) {
		t.Fatalf("want ErrInsufficientPayment, got %v", err)
	}
	if err.Error() != "Insufficient payment amount" {
		t.Fatalf("message drifted: %q", err.Error())
	}

	e, _ := m.GetEntry(context.Background(), plate)
	if e == nil || e.IsPaid || e.PaymentAmount != nil {
		t.Fatalf("failed payment mutated entry: %+v", e)
	}
}

func TestMeter_PaymentStateMachine(t *testing.T) {
	t.Parallel()
	m, clk := newMeter()
	mustSetup(t, m, baseRate)

	// settle on an empty slot is a lookup miss
	if err := m.CompletePayment(context.Background(), "NOPE", 1); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound on empty slot, got %v", err)
	}

	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	clk.now = 1060
	if err := m.CompletePayment(context.Background(), plate, 10_000_000); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}

	err := m.CompletePayment(context.Background(), plate, 10_000_000)
	if !errors.Is(err, errs.ErrAlreadyPaid) {
		t.Fatalf("want ErrAlreadyPaid, got %v", err)
	}
	if err.Error() != "Payment already completed" {
		t.Fatalf("message drifted: %q", err.Error())
	}
}

func TestMeter_OperatorToggle(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()
	mustSetup(t, m, baseRate)

	if err := m.SetOperatorStatus(asCtx(adminA), opAddr, false); err != nil {
		t.Fatalf("SetOperatorStatus(false): %v", err)
	}
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); !errors.Is(err, errs.ErrOperatorInactive) {
		t.Fatalf("want ErrOperatorInactive, got %v", err)
	}

	// name and rate survive the toggle
	op, err := m.GetOperator(context.Background(), opAddr)
	if err != nil || op == nil {
		t.Fatalf("GetOperator: op=%v err=%v", op, err)
	}
	if op.IsActive || op.Name != "Kadıköy Lot" || op.HourlyRate != baseRate {
		t.Fatalf("toggle clobbered operator: %+v", op)
	}

	if err := m.SetOperatorStatus(asCtx(adminA), opAddr, true); err != nil {
		t.Fatalf("SetOperatorStatus(true): %v", err)
	}
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry after reactivation: %v", err)
	}
}

func TestMeter_AdminRotation(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()
	if err := m.Initialize(asCtx(adminA), adminA); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := m.UpdateAdmin(asCtx(adminA), adminB); err != nil {
		t.Fatalf("UpdateAdmin: %v", err)
	}

	err := m.RegisterOperator(asCtx(adminA), opAddr, "lot", baseRate)
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("old admin should be rejected, got %v", err)
	}
	if err := m.RegisterOperator(asCtx(adminB), opAddr, "lot", baseRate); err != nil {
		t.Fatalf("new admin rejected: %v", err)
	}
}

func TestMeter_ReinitializeReassignsAdmin(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()
	if err := m.Initialize(asCtx(adminA), adminA); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// a second initialize only needs the incoming admin's signature
	if err := m.Initialize(asCtx(adminB), adminB); err != nil {
		t.Fatalf("re-Initialize: %v", err)
	}
	if err := m.RegisterOperator(asCtx(adminB), opAddr, "lot", baseRate); err != nil {
		t.Fatalf("register under new admin: %v", err)
	}
}

func TestMeter_AuthorizationRequired(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()

	if err := m.Initialize(context.Background(), adminA); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Initialize without auth: %v", err)
	}

	mustSetup(t, m, baseRate)

	if err := m.RegisterOperator(context.Background(), "GX", "x", 1); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("RegisterOperator without auth: %v", err)
	}
	if err := m.SetOperatorStatus(asCtx(opAddr), opAddr, false); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("SetOperatorStatus by non-admin: %v", err)
	}
	if err := m.UpdateAdmin(context.Background(), adminB); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("UpdateAdmin without auth: %v", err)
	}
	// an entry needs the operator's own signature; the admin's is not enough
	if _, err := m.CreateEntry(asCtx(adminA), opAddr, plate); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("CreateEntry without operator auth: %v", err)
	}
}

func TestMeter_NotInitialized(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()

	err := m.RegisterOperator(asCtx(adminA), opAddr, "lot", baseRate)
	if !errors.Is(err, errs.ErrNotInitialized) {
		t.Fatalf("want ErrNotInitialized, got %v", err)
	}
	if err := m.UpdateAdmin(asCtx(adminA), adminB); !errors.Is(err, errs.ErrNotInitialized) {
		t.Fatalf("want ErrNotInitialized, got %v", err)
	}
}

func TestMeter_CreateEntry_UnknownOperator(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()
	if err := m.Initialize(asCtx(adminA), adminA); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unregistered operator, got %v", err)
	}
}

func TestMeter_CalculateFee(t *testing.T) {
	t.Parallel()
	m, clk := newMeter()
	mustSetup(t, m, model.Stroops(6_000_000))

	clk.now = 1000
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	if _, err := m.CalculateFee(context.Background(), "NOPE"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown plate, got %v", err)
	}

	// one second rounds up to a whole minute
	clk.now = 1001
	q, err := m.CalculateFee(context.Background(), plate)
	if err != nil {
		t.Fatalf("CalculateFee: %v", err)
	}
	if q.DurationSeconds != 1 || q.Fee != 100_000 {
		t.Fatalf("quote = %+v, want {1 100000}", q)
	}

	// quotes are non-decreasing in the clock
	prev := q.Fee
	for _, now := range []uint64{1060, 1061, 2000, 4600} {
		clk.now = now
		q, err = m.CalculateFee(context.Background(), plate)
		if err != nil {
			t.Fatalf("CalculateFee at %d: %v", now, err)
		}
		if q.Fee < prev {
			t.Fatalf("fee decreased at %d: %d < %d", now, q.Fee, prev)
		}
		prev = q.Fee
	}

	// post-payment quotes keep tracking the live clock
	if err := m.CompletePayment(context.Background(), plate, prev); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}
	clk.now = 10_000
	q, err = m.CalculateFee(context.Background(), plate)
	if err != nil {
		t.Fatalf("CalculateFee on paid session: %v", err)
	}
	if q.Fee <= prev {
		t.Fatalf("paid-session quote should drift upward: %d <= %d", q.Fee, prev)
	}
}

func TestMeter_Accessors(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()

	count, err := m.GetTotalEntries(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("empty counter = %d err=%v, want 0", count, err)
	}
	e, err := m.GetEntry(context.Background(), plate)
	if err != nil || e != nil {
		t.Fatalf("GetEntry on empty store: e=%v err=%v", e, err)
	}
	op, err := m.GetOperator(context.Background(), opAddr)
	if err != nil || op != nil {
		t.Fatalf("GetOperator on empty store: op=%v err=%v", op, err)
	}

	// empty keys are misses, not errors
	e, err = m.GetEntry(context.Background(), "")
	if err != nil || e != nil {
		t.Fatalf("GetEntry with empty plate: e=%v err=%v", e, err)
	}
	op, err = m.GetOperator(context.Background(), "")
	if err != nil || op != nil {
		t.Fatalf("GetOperator with empty address: op=%v err=%v", op, err)
	}

	mustSetup(t, m, baseRate)
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, plate); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	// reads are idempotent with no intervening write
	e1, _ := m.GetEntry(context.Background(), plate)
	e2, _ := m.GetEntry(context.Background(), plate)
	if e1 == nil || e2 == nil || *e1 != *e2 {
		t.Fatalf("consecutive reads differ: %+v vs %+v", e1, e2)
	}
}

func TestMeter_RegisterOperator_OverwriteResets(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()
	mustSetup(t, m, baseRate)

	if err := m.SetOperatorStatus(asCtx(adminA), opAddr, false); err != nil {
		t.Fatalf("SetOperatorStatus: %v", err)
	}
	// re-registration resets name, rate and the active flag
	if err := m.RegisterOperator(asCtx(adminA), opAddr, "Moda Lot", 2_000_000); err != nil {
		t.Fatalf("RegisterOperator overwrite: %v", err)
	}
	op, _ := m.GetOperator(context.Background(), opAddr)
	if op == nil || !op.IsActive || op.Name != "Moda Lot" || op.HourlyRate != 2_000_000 {
		t.Fatalf("overwrite did not reset: %+v", op)
	}
}

func TestMeter_Validation(t *testing.T) {
	t.Parallel()
	m, _ := newMeter()

	if err := m.Initialize(asCtx(adminA), ""); err == nil {
		t.Fatalf("want validation error on empty admin")
	}
	if err := m.RegisterOperator(asCtx(adminA), "", "x", 1); err == nil {
		t.Fatalf("want validation error on empty address")
	}
	if err := m.RegisterOperator(asCtx(adminA), opAddr, "", 1); err == nil {
		t.Fatalf("want validation error on empty name")
	}
	if err := m.RegisterOperator(asCtx(adminA), opAddr, "x", 0); err == nil {
		t.Fatalf("want validation error on zero rate")
	}
	if _, err := m.CreateEntry(asCtx(opAddr), opAddr, ""); err == nil {
		t.Fatalf("want validation error on empty plate")
	}
	if _, err := m.CalculateFee(context.Background(), ""); err == nil {
		t.Fatalf("want validation error on empty plate")
	}
	if err := m.CompletePayment(context.Background(), "", 1); err == nil {
		t.Fatalf("want validation error on empty plate")
	}
}
