package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pps-segura/pesotrack/internal/models"
)

// MemoryStore keeps everything in mutex-guarded maps. Data is lost on
// restart; useful for development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[uint]*models.Account
	byUsername    map[string]uint
	revoked       map[string]int64
	profiles      map[uint]*models.Profile
	weights       map[uint][]models.WeightEntry
	nextAccountID uint
	nextEntryID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[uint]*models.Account),
		byUsername:    make(map[string]uint),
		revoked:       make(map[string]int64),
		profiles:      make(map[uint]*models.Profile),
		weights:       make(map[uint][]models.WeightEntry),
		nextAccountID: 1,
		nextEntryID:   1,
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, username, passwordHash string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return nil, ErrUsernameTaken
	}

	role := models.RoleUser
	if len(s.accounts) == 0 {
		role = models.RoleAdmin
	}

	acc := &models.Account{
		ID:           s.nextAccountID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	s.nextAccountID++
	s.accounts[acc.ID] = acc
	s.byUsername[username] = acc.ID

	out := *acc
	return &out, nil
}

func (s *MemoryStore) AccountByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.accounts[id]
	return &out, nil
}

func (s *MemoryStore) AccountByID(_ context.Context, id uint) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *acc
	return &out, nil
}

func (s *MemoryStore) CountAccounts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.accounts)), nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id uint, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.PasswordHash = passwordHash
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id uint, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Role = role
	return nil
}

func (s *MemoryStore) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revoked[jti]; !ok {
		s.revoked[jti] = expiresAt.Unix()
	}
	return nil
}

func (s *MemoryStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	return exp > time.Now().Unix(), nil
}

func (s *MemoryStore) SweepRevoked(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	cutoff := now.Unix()
	for jti, exp := range s.revoked {
		if exp <= cutoff {
			delete(s.revoked, jti)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Profile(_ context.Context, accountID uint) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.profiles[p.AccountID] = &cp
	return nil
}

func (s *MemoryStore) SaveWeight(_ context.Context, e *models.WeightEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := dayBounds(e.RecordedAt)
	entries := s.weights[e.AccountID]
	kept := entries[:0]
	for _, ex := range entries {
		if ex.RecordedAt.Before(start) || !ex.RecordedAt.Before(end) {
			kept = append(kept, ex)
		}
	}

	cp := *e
	cp.ID = s.nextEntryID
	s.nextEntryID++
	e.ID = cp.ID
	s.weights[e.AccountID] = append(kept, cp)
	return nil
}

func (s *MemoryStore) LatestWeight(_ context.Context, accountID uint) (*models.WeightEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestOf(s.weights[accountID], func(models.WeightEntry) bool { return true })
}

func (s *MemoryStore) LatestWeightOtherDay(_ context.Context, accountID uint, day time.Time) (*models.WeightEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end := dayBounds(day)
	return latestOf(s.weights[accountID], func(e models.WeightEntry) bool {
		return e.RecordedAt.Before(start) || !e.RecordedAt.Before(end)
	})
}

func latestOf(entries []models.WeightEntry, keep func(models.WeightEntry) bool) (*models.WeightEntry, error) {
	var latest *models.WeightEntry
	for i := range entries {
		e := entries[i]
		if !keep(e) {
			continue
		}
		if latest == nil || e.RecordedAt.After(latest.RecordedAt) {
			cp := e
			latest = &cp
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) WeightHistory(_ context.Context, accountID uint) ([]models.WeightEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.weights[accountID]
	out := make([]models.WeightEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out, nil
}

func (s *MemoryStore) WeightStats(_ context.Context, accountID uint) (*WeightStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.weights[accountID]
	stats := &WeightStats{Count: int64(len(entries))}
	for i, e := range entries {
		if i == 0 || e.WeightKg < stats.MinKg {
			stats.MinKg = e.WeightKg
		}
		if i == 0 || e.WeightKg > stats.MaxKg {
			stats.MaxKg = e.WeightKg
		}
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }
