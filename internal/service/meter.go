// Package service contains the application services: the parking-meter
// session manager and host-side account authentication.
package service

import (
	"context"
	"errors"

	"github.com/mhmtalitas/parkmeter/internal/auth"
	"github.com/mhmtalitas/parkmeter/internal/clock"
	"github.com/mhmtalitas/parkmeter/internal/errs"
	"github.com/mhmtalitas/parkmeter/internal/model"
	"github.com/mhmtalitas/parkmeter/internal/pricing"
	"github.com/mhmtalitas/parkmeter/internal/storage"
)

// MeterService is the parking-meter session manager: admin and operator
// lifecycle, entry creation, fee quotes, and payment settlement. Every
// operation runs as one atomic transaction; any failure aborts it with
// no partial state change.
type MeterService interface {
	// Initialize sets the admin principal. Calling it again reassigns the
	// admin, gated only by the new admin's authorization.
	Initialize(ctx context.Context, admin model.Principal) error
	// RegisterOperator writes an active operator record, overwriting any
	// existing record at the same address.
	RegisterOperator(ctx context.Context, addr model.Principal, name string, hourlyRate model.Stroops) error
	// SetOperatorStatus toggles an operator's active flag, preserving
	// name and rate.
	SetOperatorStatus(ctx context.Context, addr model.Principal, isActive bool) error
	// UpdateAdmin rotates the admin in a single step.
	UpdateAdmin(ctx context.Context, newAdmin model.Principal) error
	// CreateEntry opens an unpaid session for a plate and echoes the
	// plate back as a receipt handle.
	CreateEntry(ctx context.Context, operator model.Principal, plate string) (string, error)
	// CalculateFee quotes the fee for a plate against the live clock.
	CalculateFee(ctx context.Context, plate string) (model.FeeQuote, error)
	// CompletePayment settles an open session in place.
	CompletePayment(ctx context.Context, plate string, amount model.Stroops) error
	// GetEntry returns the latest entry for a plate, or nil when absent.
	GetEntry(ctx context.Context, plate string) (*model.ParkingEntry, error)
	// GetOperator returns an operator record, or nil when absent.
	GetOperator(ctx context.Context, addr model.Principal) (*model.Operator, error)
	// GetTotalEntries returns the lifetime count of successful entries.
	GetTotalEntries(ctx context.Context) (uint32, error)
}

type MeterServiceImpl struct {
	store storage.Runner
	auth  auth.Authenticator
	clock clock.Clock
}

// NewMeterService constructs the session manager with its collaborators.
func NewMeterService(store storage.Runner, authn auth.Authenticator, clk clock.Clock) *MeterServiceImpl {
	return &MeterServiceImpl{store: store, auth: authn, clock: clk}
}

// Initialize writes the admin slot under the new admin's authorization.
func (m *MeterServiceImpl) Initialize(ctx context.Context, admin model.Principal) error {
	if admin == "" {
		return errors.New("validation: empty admin")
	}
	if err := m.auth.Require(ctx, admin); err != nil {
		return err
	}
	return m.store.InTx(ctx, func(s storage.Store) error {
		return s.Set(ctx, storage.AdminKey(), admin)
	})
}

// RegisterOperator creates or overwrites an operator record with
// is_active=true. Requires the current admin's authorization.
func (m *MeterServiceImpl) RegisterOperator(ctx context.Context, addr model.Principal, name string, hourlyRate model.Stroops) error {
	if addr == "" || name == "" {
		return errors.New("validation: empty operator address/name")
	}
	if hourlyRate <= 0 {
		return errors.New("validation: hourly rate must be positive")
	}
	return m.store.InTx(ctx, func(s storage.Store) error {
		if err := m.requireAdmin(ctx, s); err != nil {
			return err
		}
		op := model.Operator{
			Address:    addr,
			Name:       name,
			HourlyRate: hourlyRate,
			IsActive:   true,
		}
		return s.Set(ctx, storage.OperatorKey(addr), op)
	})
}

// SetOperatorStatus toggles is_active on an existing operator.
func (m *MeterServiceImpl) SetOperatorStatus(ctx context.Context, addr model.Principal, isActive bool) error {
	if addr == "" {
		return errors.New("validation: empty operator address")
	}
	return m.store.InTx(ctx, func(s storage.Store) error {
		if err := m.requireAdmin(ctx, s); err != nil {
			return err
		}
		op, err := readOperator(ctx, s, addr)
		if err != nil {
			return err
		}
		op.IsActive = isActive
		return s.Set(ctx, storage.OperatorKey(addr), *op)
	})
}

// UpdateAdmin replaces the admin under the current admin's authorization.
func (m *MeterServiceImpl) UpdateAdmin(ctx context.Context, newAdmin model.Principal) error {
	if newAdmin == "" {
		return errors.New("validation: empty admin")
	}
	return m.store.InTx(ctx, func(s storage.Store) error {
		if err := m.requireAdmin(ctx, s); err != nil {
			return err
		}
		return s.Set(ctx, storage.AdminKey(), newAdmin)
	})
}

// CreateEntry opens a session for plate under the operator's
// authorization and increments the lifetime entry counter.
func (m *MeterServiceImpl) CreateEntry(ctx context.Context, operator model.Principal, plate string) (string, error) {
	if operator == "" || plate == "" {
		return "", errors.New("validation: empty operator/plate")
	}
	if err := m.auth.Require(ctx, operator); err != nil {
		return "", err
	}
	err := m.store.InTx(ctx, func(s storage.Store) error {
		op, err := readOperator(ctx, s, operator)
		if err != nil {
			return err
		}
		if !op.IsActive {
			return errs.ErrOperatorInactive
		}

		var prior model.ParkingEntry
		ok, err := s.Get(ctx, storage.EntryKey(plate), &prior)
		if err != nil {
			return err
		}
		if ok && !prior.IsPaid {
			return errs.ErrSessionActive
		}

		entry := model.ParkingEntry{
			LicensePlate:    plate,
			EntryTime:       m.clock.Now(),
			OperatorAddress: operator,
			IsPaid:          false,
		}
		if err := s.Set(ctx, storage.EntryKey(plate), entry); err != nil {
			return err
		}

		var count uint32
		if _, err := s.Get(ctx, storage.EntryCountKey(), &count); err != nil {
			return err
		}
		return s.Set(ctx, storage.EntryCountKey(), count+1)
	})
	if err != nil {
		return "", err
	}
	return plate, nil
}

// CalculateFee quotes duration and fee for a plate. The quote is always
// against the live clock, even for a settled session.
func (m *MeterServiceImpl) CalculateFee(ctx context.Context, plate string) (model.FeeQuote, error) {
	if plate == "" {
		return model.FeeQuote{}, errors.New("validation: empty plate")
	}
	var quote model.FeeQuote
	err := m.store.InTx(ctx, func(s storage.Store) error {
		q, err := m.quote(ctx, s, plate)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	return quote, err
}

// CompletePayment settles an open session. No principal is required at
// this call site; the fee floor is the only gate.
func (m *MeterServiceImpl) CompletePayment(ctx context.Context, plate string, amount model.Stroops) error {
	if plate == "" {
		return errors.New("validation: empty plate")
	}
	return m.store.InTx(ctx, func(s storage.Store) error {
		entry, err := readEntry(ctx, s, plate)
		if err != nil {
			return err
		}
		if entry.IsPaid {
			return errs.ErrAlreadyPaid
		}

		q, err := m.quote(ctx, s, plate)
		if err != nil {
			return err
		}
		if amount < q.Fee {
			return errs.ErrInsufficientPayment
		}

		exitTime := m.clock.Now()
		entry.IsPaid = true
		entry.ExitTime = &exitTime
		entry.PaymentAmount = &amount
		return s.Set(ctx, storage.EntryKey(plate), *entry)
	})
}

// GetEntry returns the entry at plate; nil without error when absent.
// An empty plate is an ordinary miss.
func (m *MeterServiceImpl) GetEntry(ctx context.Context, plate string) (*model.ParkingEntry, error) {
	if plate == "" {
		return nil, nil
	}
	var out *model.ParkingEntry
	err := m.store.InTx(ctx, func(s storage.Store) error {
		var e model.ParkingEntry
		ok, err := s.Get(ctx, storage.EntryKey(plate), &e)
		if err != nil {
			return err
		}
		if ok {
			out = &e
		}
		return nil
	})
	return out, err
}

// GetOperator returns the operator at addr; nil without error when absent.
// An empty address is an ordinary miss.
func (m *MeterServiceImpl) GetOperator(ctx context.Context, addr model.Principal) (*model.Operator, error) {
	if addr == "" {
		return nil, nil
	}
	var out *model.Operator
	err := m.store.InTx(ctx, func(s storage.Store) error {
		var op model.Operator
		ok, err := s.Get(ctx, storage.OperatorKey(addr), &op)
		if err != nil {
			return err
		}
		if ok {
			out = &op
		}
		return nil
	})
	return out, err
}

// GetTotalEntries returns the lifetime entry count, 0 before any entry.
func (m *MeterServiceImpl) GetTotalEntries(ctx context.Context) (uint32, error) {
	var count uint32
	err := m.store.InTx(ctx, func(s storage.Store) error {
		_, err := s.Get(ctx, storage.EntryCountKey(), &count)
		return err
	})
	return count, err
}

// requireAdmin loads the admin slot and checks its authorization.
func (m *MeterServiceImpl) requireAdmin(ctx context.Context, s storage.Store) error {
	var admin model.Principal
	ok, err := s.Get(ctx, storage.AdminKey(), &admin)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotInitialized
	}
	return m.auth.Require(ctx, admin)
}

// quote computes duration and fee for plate against the live clock.
func (m *MeterServiceImpl) quote(ctx context.Context, s storage.Store, plate string) (model.FeeQuote, error) {
	entry, err := readEntry(ctx, s, plate)
	if err != nil {
		return model.FeeQuote{}, err
	}
	op, err := readOperator(ctx, s, entry.OperatorAddress)
	if err != nil {
		return model.FeeQuote{}, err
	}

	now := m.clock.Now()
	if now < entry.EntryTime {
		now = entry.EntryTime
	}
	duration := now - entry.EntryTime
	return model.FeeQuote{
		DurationSeconds: duration,
		Fee:             pricing.Fee(duration, op.HourlyRate),
	}, nil
}

func readOperator(ctx context.Context, s storage.Store, addr model.Principal) (*model.Operator, error) {
	var op model.Operator
	ok, err := s.Get(ctx, storage.OperatorKey(addr), &op)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &op, nil
}

func readEntry(ctx context.Context, s storage.Store, plate string) (*model.ParkingEntry, error) {
	var e model.ParkingEntry
	ok, err := s.Get(ctx, storage.EntryKey(plate), &e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &e, nil
}
