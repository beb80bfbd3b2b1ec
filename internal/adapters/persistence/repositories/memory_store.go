package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"kcc-loanhub/internal/core/domain"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryStore keeps the ledger in process memory. Used with DB_DRIVER=memory and in tests.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	credentials map[common.Address]domain.Credential
	roles       *domain.RoleAssignment
	loans       []*domain.LoanApplication
	events      []*domain.LoanEvent
}

func (st memoryState) clone() memoryState {
	c := memoryState{
		credentials: make(map[common.Address]domain.Credential, len(st.credentials)),
		loans:       make([]*domain.LoanApplication, len(st.loans)),
		events:      append([]*domain.LoanEvent(nil), st.events...),
	}
	for k, v := range st.credentials {
		c.credentials[k] = v
	}
	if st.roles != nil {
		r := *st.roles
		c.roles = &r
	}
	for i, l := range st.loans {
		c.loans[i] = l.Clone()
	}
	return c
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{credentials: map[common.Address]domain.Credential{}}}
}

func (s *MemoryStore) Credentials() CredentialRepository { return memoryCredentials{s} }
func (s *MemoryStore) Roles() RoleRepository             { return memoryRoles{s} }
func (s *MemoryStore) Loans() LoanRepository             { return memoryLoans{s} }
func (s *MemoryStore) Events() EventRepository           { return memoryEvents{s} }

// Transaction snapshots the state and restores it if fn fails
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := fn(memoryTx{s}); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// memoryTx is the store view handed to a running transaction; nested
// transactions join the outer one
type memoryTx struct {
	*MemoryStore
}

func (t memoryTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// ============================================================
// Credentials
// ============================================================

type memoryCredentials struct{ s *MemoryStore }

func (r memoryCredentials) Get(ctx context.Context, owner common.Address) (*domain.Credential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.state.credentials[owner]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r memoryCredentials) Save(ctx context.Context, credential *domain.Credential) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.state.credentials[credential.Owner] = *credential
	return nil
}

func (r memoryCredentials) Count(ctx context.Context, activeOnly bool) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, c := range r.s.state.credentials {
		if !activeOnly || c.IsActive() {
			n++
		}
	}
	return n, nil
}

// ============================================================
// Roles
// ============================================================

type memoryRoles struct{ s *MemoryStore }

func (r memoryRoles) Get(ctx context.Context) (*domain.RoleAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if r.s.state.roles == nil {
		return nil, domain.ErrNotFound
	}
	a := *r.s.state.roles
	return &a, nil
}

func (r memoryRoles) Save(ctx context.Context, assignment domain.RoleAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.state.roles = &assignment
	return nil
}

// ============================================================
// Loans
// ============================================================

type memoryLoans struct{ s *MemoryStore }

func (r memoryLoans) Create(ctx context.Context, loan *domain.LoanApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if loan.ID != uint64(len(r.s.state.loans)) {
		return fmt.Errorf("loan id %d out of sequence, next is %d", loan.ID, len(r.s.state.loans))
	}
	c := loan.Clone()
	c.Bills = nil
	r.s.state.loans = append(r.s.state.loans, c)
	return nil
}

func (r memoryLoans) Get(ctx context.Context, id uint64) (*domain.LoanApplication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if id >= uint64(len(r.s.state.loans)) {
		return nil, domain.ErrNotFound
	}
	return r.s.state.loans[id].Clone(), nil
}

func (r memoryLoans) Update(ctx context.Context, loan *domain.LoanApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if loan.ID >= uint64(len(r.s.state.loans)) {
		return domain.ErrNotFound
	}
	stored := r.s.state.loans[loan.ID]
	stored.Status = loan.Status
	stored.SanctionedAmount = loan.SanctionedAmount
	stored.DisbursedAmount = loan.DisbursedAmount
	stored.UpdatedAt = loan.UpdatedAt
	return nil
}

func (r memoryLoans) AppendBill(ctx context.Context, loanID uint64, seq int, bill domain.BillReference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if loanID >= uint64(len(r.s.state.loans)) {
		return domain.ErrNotFound
	}
	stored := r.s.state.loans[loanID]
	if seq != len(stored.Bills) {
		return fmt.Errorf("bill seq %d out of sequence for loan %d", seq, loanID)
	}
	stored.Bills = append(stored.Bills, bill)
	return nil
}

func (r memoryLoans) Count(ctx context.Context) (uint64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return uint64(len(r.s.state.loans)), nil
}

func (r memoryLoans) CountByFarmer(ctx context.Context, farmer common.Address) (uint64, error) {
	loans, err := r.ListByFarmer(ctx, farmer)
	return uint64(len(loans)), err
}

func (r memoryLoans) ListByFarmer(ctx context.Context, farmer common.Address) ([]*domain.LoanApplication, error) {
	loans, _, err := r.List(ctx, LoanFilter{Farmer: &farmer})
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (r memoryLoans) List(ctx context.Context, filter LoanFilter) ([]*domain.LoanApplication, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*domain.LoanApplication
	// newest first
	for i := len(r.s.state.loans) - 1; i >= 0; i-- {
		l := r.s.state.loans[i]
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		if filter.Farmer != nil && l.Farmer != *filter.Farmer {
			continue
		}
		matched = append(matched, l)
	}

	total := int64(len(matched))
	if filter.Limit > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			end := filter.Offset + filter.Limit
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[filter.Offset:end]
		}
	}

	out := make([]*domain.LoanApplication, 0, len(matched))
	for _, l := range matched {
		out = append(out, l.Clone())
	}
	return out, total, nil
}

func (r memoryLoans) All(ctx context.Context) ([]*domain.LoanApplication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.LoanApplication, 0, len(r.s.state.loans))
	for _, l := range r.s.state.loans {
		out = append(out, l.Clone())
	}
	return out, nil
}

// ============================================================
// Events
// ============================================================

type memoryEvents struct{ s *MemoryStore }

func (r memoryEvents) Append(ctx context.Context, event *domain.LoanEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e := *event
	r.s.state.events = append(r.s.state.events, &e)
	return nil
}

func (r memoryEvents) ListByLoan(ctx context.Context, loanID uint64) ([]*domain.LoanEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.LoanEvent
	for _, e := range r.s.state.events {
		if e.LoanID != nil && *e.LoanID == loanID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}
