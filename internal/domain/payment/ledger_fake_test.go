package payment

import (
	"context"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type TxMock struct {
	pgx.Tx
}

// fakeLedger is an in-memory store that implements the payment, loan and customer
// repositories. Writes made inside a transaction are discarded on rollback.
type fakeLedger struct {
	customers map[int64]customer.Customer
	loans     map[int64]loan.Loan
	payments  map[int64]Payment

	snapshot *fakeLedger
	nextID   int64

	locked    []string
	commits   int
	rollbacks int

	failBalanceUpdate bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		customers: map[int64]customer.Customer{},
		loans:     map[int64]loan.Loan{},
		payments:  map[int64]Payment{},
		nextID:    100,
	}
}

func (f *fakeLedger) clone() *fakeLedger {
	c := &fakeLedger{
		customers: make(map[int64]customer.Customer, len(f.customers)),
		loans:     make(map[int64]loan.Loan, len(f.loans)),
		payments:  make(map[int64]Payment, len(f.payments)),
		nextID:    f.nextID,
	}
	for k, v := range f.customers {
		c.customers[k] = v
	}
	for k, v := range f.loans {
		c.loans[k] = v
	}
	for k, v := range f.payments {
		v.Allocations = append([]Allocation(nil), v.Allocations...)
		c.payments[k] = v
	}
	return c
}

func (f *fakeLedger) BeginTx(context.Context) (pgx.Tx, error) {
	f.snapshot = f.clone()
	f.locked = nil
	return &TxMock{}, nil
}

func (f *fakeLedger) CommitTx(context.Context, pgx.Tx) error {
	f.snapshot = nil
	f.commits++
	return nil
}

func (f *fakeLedger) RollbackTx(context.Context, pgx.Tx) error {
	if f.snapshot != nil {
		f.customers, f.loans, f.payments, f.nextID = f.snapshot.customers, f.snapshot.loans, f.snapshot.payments, f.snapshot.nextID
		f.snapshot = nil
		f.rollbacks++
	}
	return nil
}

func (f *fakeLedger) id() int64 {
	f.nextID++
	return f.nextID
}

// payment.Repository

func (f *fakeLedger) CreatePaymentInTx(_ context.Context, _ pgx.Tx, p *Payment) (*Payment, error) {
	p.ID = f.id()
	for i := range p.Allocations {
		p.Allocations[i].ID = f.id()
		p.Allocations[i].PaymentID = p.ID
	}
	stored := *p
	stored.Allocations = append([]Allocation(nil), p.Allocations...)
	f.payments[p.ID] = stored
	return p, nil
}

func (f *fakeLedger) FindByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*Payment, error) {
	f.locked = append(f.locked, "payment")
	p, ok := f.payments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	p.Allocations = append([]Allocation(nil), p.Allocations...)
	return &p, nil
}

func (f *fakeLedger) UpdateStatusInTx(_ context.Context, _ pgx.Tx, id int64, status Status) error {
	p, ok := f.payments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.Status = status
	f.payments[id] = p
	return nil
}

func (f *fakeLedger) GetPaymentByID(_ context.Context, id int64) (*Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (f *fakeLedger) ListByCustomer(_ context.Context, customerID int64) ([]*Payment, error) {
	var out []*Payment
	for _, p := range f.payments {
		if p.CustomerID == customerID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

// loan.Repository via loanView, since FindByIDForUpdate collides with the payment method.

type loanView struct{ *fakeLedger }

func (v loanView) CreateLoanInTx(_ context.Context, _ pgx.Tx, l *loan.Loan) (*loan.Loan, error) {
	l.ID = v.id()
	v.loans[l.ID] = *l
	return l, nil
}

func (v loanView) UpdateLoanInTx(_ context.Context, _ pgx.Tx, l *loan.Loan) error {
	v.loans[l.ID] = *l
	return nil
}

func (v loanView) UpdateBalanceInTx(_ context.Context, _ pgx.Tx, id int64, outstanding decimal.Decimal, status loan.LoanStatus) error {
	if v.failBalanceUpdate {
		return apperrors.ErrDatabase
	}
	l := v.loans[id]
	l.Outstanding = outstanding
	l.Status = status
	v.loans[id] = l
	return nil
}

func (v loanView) FindByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*loan.Loan, error) {
	l, ok := v.loans[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &l, nil
}

func (v loanView) FindByCustomerForUpdate(_ context.Context, _ pgx.Tx, customerID int64) ([]*loan.Loan, error) {
	v.locked = append(v.locked, "loans")
	return v.filter(func(l loan.Loan) bool { return l.CustomerID == customerID }), nil
}

func (v loanView) FindByIDsForUpdate(_ context.Context, _ pgx.Tx, ids []int64) ([]*loan.Loan, error) {
	v.locked = append(v.locked, "loans")
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return v.filter(func(l loan.Loan) bool { return want[l.ID] }), nil
}

func (v loanView) filter(keep func(loan.Loan) bool) []*loan.Loan {
	var out []*loan.Loan
	for _, l := range v.loans {
		if keep(l) {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v loanView) GetLoanByID(ctx context.Context, id int64) (*loan.Loan, error) {
	return v.FindByIDForUpdate(ctx, nil, id)
}

func (v loanView) ListLoans(_ context.Context, filter loan.ListFilter) ([]*loan.Loan, error) {
	return v.filter(func(l loan.Loan) bool {
		return filter.CustomerID == nil || l.CustomerID == *filter.CustomerID
	}), nil
}

func (v loanView) DeleteLoan(_ context.Context, id int64) error {
	delete(v.loans, id)
	return nil
}

// customer.CustomerRepository

type customerView struct{ *fakeLedger }

func (v customerView) Create(_ context.Context, c *customer.Customer) error {
	c.ID = v.id()
	v.customers[c.ID] = *c
	return nil
}

func (v customerView) Update(_ context.Context, c *customer.Customer) error {
	v.customers[c.ID] = *c
	return nil
}

func (v customerView) FindByID(_ context.Context, id int64) (*customer.Customer, error) {
	c, ok := v.customers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (v customerView) FindByIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*customer.Customer, error) {
	v.locked = append(v.locked, "customer")
	return v.FindByID(ctx, id)
}

func (v customerView) FindAll(context.Context, *customer.Status) ([]*customer.Customer, error) {
	return nil, nil
}

func (v customerView) Delete(_ context.Context, id int64) error {
	delete(v.customers, id)
	return nil
}

var (
	_ Repository                  = (*fakeLedger)(nil)
	_ loan.Repository             = loanView{}
	_ customer.CustomerRepository = customerView{}
)
