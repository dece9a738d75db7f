// Package memory provides an in-memory Store implementation used by tests
// and local development. It mirrors the postgres repository's semantics,
// including [from, to) ledger filtering and posting-date ordering.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardcore/billing-service/internal/models"
	"github.com/cardcore/billing-service/internal/repository"
)

// Store is an in-memory implementation of the service's storage interface.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
	entries  []models.LedgerEntry
	cycles   map[uuid.UUID]models.BillingCycle
	sequence int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]models.Account),
		cycles:   make(map[uuid.UUID]models.BillingCycle),
	}
}

func (s *Store) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return nil
}

func (s *Store) FindAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (s *Store) CreateLedgerEntry(_ context.Context, entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	entry.Sequence = s.sequence
	entry.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *Store) ListLedgerEntries(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.AccountID != accountID {
			continue
		}
		if e.PostedAt.Before(from) || !e.PostedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.Before(out[j].PostedAt)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (s *Store) CreateCycle(_ context.Context, cycle *models.BillingCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cycle.CreatedAt = now
	cycle.UpdatedAt = now
	s.cycles[cycle.ID] = *cycle
	return nil
}

func (s *Store) UpdateCycle(_ context.Context, cycle *models.BillingCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[cycle.ID]; !ok {
		return repository.ErrNotFound
	}
	cycle.UpdatedAt = time.Now().UTC()
	s.cycles[cycle.ID] = *cycle
	return nil
}

func (s *Store) FindCycle(_ context.Context, id uuid.UUID) (*models.BillingCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cycle, ok := s.cycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cycle, nil
}

func (s *Store) ListCycles(_ context.Context, accountID uuid.UUID) ([]models.BillingCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BillingCycle
	for _, c := range s.cycles {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out, nil
}

func (s *Store) FindOpenCycle(_ context.Context, accountID uuid.UUID) (*models.BillingCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cycles {
		if c.AccountID == accountID && c.Status == models.CycleOpen {
			cycle := c
			return &cycle, nil
		}
	}
	return nil, nil
}

func (s *Store) LatestCycle(_ context.Context, accountID uuid.UUID) (*models.BillingCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.BillingCycle
	for _, c := range s.cycles {
		if c.AccountID != accountID {
			continue
		}
		if latest == nil || c.CycleNumber > latest.CycleNumber {
			cycle := c
			latest = &cycle
		}
	}
	return latest, nil
}

func (s *Store) ListOpenCyclesEnded(_ context.Context, now time.Time) ([]models.BillingCycle, error) {
	return s.listByStatus(models.CycleOpen, func(c models.BillingCycle) bool {
		return !c.EndDate.After(now)
	}), nil
}

func (s *Store) ListUnpaidCyclesPastDue(_ context.Context, now time.Time) ([]models.BillingCycle, error) {
	return s.listByStatus(models.CycleClosedUnpaid, func(c models.BillingCycle) bool {
		return !c.DueDate.After(now)
	}), nil
}

func (s *Store) listByStatus(status models.CycleStatus, match func(models.BillingCycle) bool) []models.BillingCycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.BillingCycle
	for _, c := range s.cycles {
		if c.Status == status && match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out
}
