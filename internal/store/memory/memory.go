// Package memory is a process-local store.Store. It backs DATA_BACKEND=memory and the
// handler tests; everything is lost on exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"monthlydata/internal/store"
	"monthlydata/models"

	"github.com/google/uuid"
)

type pairKey struct{ username, mobile string }

type entry struct {
	rec models.MonthlyRecord
	seq uint64
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	records map[uuid.UUID]*entry
	pairs   map[pairKey]uuid.UUID
	seq     uint64

	users      map[uint]*models.User
	userByName map[string]uint
	roles      map[uint]models.Role
	roleByName map[string]uint
	tokens     map[uint]*models.RefreshToken
	tokenByHex map[string]uint
	lastID     uint
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store with the master roles seeded.
func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		records:    make(map[uuid.UUID]*entry),
		pairs:      make(map[pairKey]uuid.UUID),
		users:      make(map[uint]*models.User),
		userByName: make(map[string]uint),
		roles:      make(map[uint]models.Role),
		roleByName: make(map[string]uint),
		tokens:     make(map[uint]*models.RefreshToken),
		tokenByHex: make(map[string]uint),
	}
	for _, o := range opts {
		o(s)
	}
	for _, r := range models.DefaultRoles() {
		s.ensureRoleLocked(r.Name, r.Description)
	}
	return s
}

func (s *Store) nextID() uint {
	s.lastID++
	return s.lastID
}

func (s *Store) ensureRoleLocked(name, desc string) models.Role {
	if id, ok := s.roleByName[name]; ok {
		return s.roles[id]
	}
	now := s.now()
	r := models.Role{ID: s.nextID(), Name: name, Description: desc, CreatedAt: now, UpdatedAt: now}
	s.roles[r.ID] = r
	s.roleByName[name] = r.ID
	return r
}

// resolveLocked returns a copy of e with CreatedBy filled from the users map.
func (s *Store) resolveLocked(e *entry) *models.MonthlyRecord {
	r := e.rec
	if u, ok := s.users[r.CreatedByID]; ok {
		r.CreatedBy = &models.Creator{ID: u.ID, Username: u.Username, Email: u.Email}
	}
	return &r
}

func matches(r *models.MonthlyRecord, f store.RecordFilter) bool {
	if f.Username != "" && r.Username != f.Username {
		return false
	}
	if f.Mobile != "" && r.Mobile != f.Mobile {
		return false
	}
	if f.ExcludeID != uuid.Nil && r.ID == f.ExcludeID {
		return false
	}
	return true
}

func (s *Store) CreateRecord(ctx context.Context, r *models.MonthlyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[r.CreatedByID]; !ok {
		return fmt.Errorf("create record: creator %d does not exist", r.CreatedByID)
	}
	key := pairKey{r.Username, r.Mobile}
	if _, taken := s.pairs[key]; taken {
		return fmt.Errorf("create record: %w", store.ErrDuplicate)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, taken := s.records[r.ID]; taken {
		return fmt.Errorf("create record %s: %w", r.ID, store.ErrDuplicate)
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	r.CreatedBy = nil
	s.seq++
	e := &entry{rec: *r, seq: s.seq}
	s.records[r.ID] = e
	s.pairs[key] = r.ID
	*r = *s.resolveLocked(e)
	return nil
}

func (s *Store) FindRecordByID(ctx context.Context, id uuid.UUID) (*models.MonthlyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("find record %s: %w", id, store.ErrNotFound)
	}
	return s.resolveLocked(e), nil
}

func (s *Store) FindOneRecord(ctx context.Context, f store.RecordFilter) (*models.MonthlyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.records {
		if matches(&e.rec, f) {
			return s.resolveLocked(e), nil
		}
	}
	return nil, fmt.Errorf("find record: %w", store.ErrNotFound)
}

// FindRecords orders by creation time, newest first, falling back to insertion order.
func (s *Store) FindRecords(ctx context.Context, f store.RecordFilter, p store.Page) ([]models.MonthlyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]*entry, 0, len(s.records))
	for _, e := range s.records {
		if matches(&e.rec, f) {
			hits = append(hits, e)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := []models.MonthlyRecord{}
	if p.Skip >= len(hits) {
		return out, nil
	}
	hits = hits[max(p.Skip, 0):]
	if p.Limit > 0 && p.Limit < len(hits) {
		hits = hits[:p.Limit]
	}
	for _, e := range hits {
		out = append(out, *s.resolveLocked(e))
	}
	return out, nil
}

func (s *Store) CountRecords(ctx context.Context, f store.RecordFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.records {
		if matches(&e.rec, f) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateRecordByID(ctx context.Context, id uuid.UUID, u store.RecordUpdate) (*models.MonthlyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("update record %s: %w", id, store.ErrNotFound)
	}
	next := e.rec
	u.ApplyTo(&next)
	oldKey := pairKey{e.rec.Username, e.rec.Mobile}
	newKey := pairKey{next.Username, next.Mobile}
	if newKey != oldKey {
		if _, taken := s.pairs[newKey]; taken {
			return nil, fmt.Errorf("update record %s: %w", id, store.ErrDuplicate)
		}
		delete(s.pairs, oldKey)
		s.pairs[newKey] = id
	}
	next.UpdatedAt = s.now()
	e.rec = next
	return s.resolveLocked(e), nil
}

func (s *Store) DeleteRecordByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.records[id]
	if !ok {
		return fmt.Errorf("delete record %s: %w", id, store.ErrNotFound)
	}
	delete(s.pairs, pairKey{e.rec.Username, e.rec.Mobile})
	delete(s.records, id)
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User, roleName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Username = strings.TrimSpace(u.Username)
	if _, taken := s.userByName[u.Username]; taken {
		return fmt.Errorf("create user %s: %w", u.Username, store.ErrDuplicate)
	}
	role := s.ensureRoleLocked(roleName, "")
	rid := role.ID
	now := s.now()
	u.ID = s.nextID()
	u.RoleID = &rid
	u.Role = role
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	s.userByName[u.Username] = u.ID
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("find user %d: %w", id, store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userByName[strings.TrimSpace(username)]
	if !ok {
		return nil, fmt.Errorf("find user %q: %w", username, store.ErrNotFound)
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID uint, hash []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("update password for %d: %w", userID, store.ErrNotFound)
	}
	u.HashedPassword = append([]byte(nil), hash...)
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) RoleName(ctx context.Context, u *models.User) (string, error) {
	if u.RoleID == nil {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[*u.RoleID]
	if !ok {
		return "", fmt.Errorf("find role %d: %w", *u.RoleID, store.ErrNotFound)
	}
	return r.Name, nil
}

func (s *Store) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.tokenByHex[rt.TokenHash]; taken {
		return fmt.Errorf("store refresh token: %w", store.ErrDuplicate)
	}
	now := s.now()
	rt.ID = s.nextID()
	rt.CreatedAt, rt.UpdatedAt = now, now
	cp := *rt
	s.tokens[rt.ID] = &cp
	s.tokenByHex[rt.TokenHash] = rt.ID
	return nil
}

func (s *Store) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokenByHex[tokenHash]
	if !ok {
		return nil, fmt.Errorf("find refresh token: %w", store.ErrNotFound)
	}
	cp := *s.tokens[id]
	return &cp, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.tokens[id]
	if !ok {
		return fmt.Errorf("revoke refresh token %d: %w", id, store.ErrNotFound)
	}
	rt.Revoked = true
	rt.UpdatedAt = s.now()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
