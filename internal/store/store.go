// Package store defines the persistence contracts for monthly records and the
// identities that own them. Backends live in the postgres and memory subpackages.
package store

import (
	"context"
	"errors"

	"monthlydata/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write would break a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// RecordFilter narrows record queries. Zero-valued fields do not filter.
type RecordFilter struct {
	Username string
	Mobile   string
	// ExcludeID drops one record from the match, used to look for "another" record.
	ExcludeID uuid.UUID
}

// Page selects a window of a result set.
type Page struct {
	Skip  int
	Limit int
}

// RecordUpdate is a partial update. Nil fields are left unchanged.
type RecordUpdate struct {
	Username *string
	Mobile   *string
	Months   [12]*float64
}

// Empty reports whether the update changes nothing.
func (u RecordUpdate) Empty() bool {
	if u.Username != nil || u.Mobile != nil {
		return false
	}
	for _, m := range u.Months {
		if m != nil {
			return false
		}
	}
	return true
}

// Columns flattens the update into column/value pairs.
func (u RecordUpdate) Columns() map[string]any {
	cols := make(map[string]any, 14)
	if u.Username != nil {
		cols["username"] = *u.Username
	}
	if u.Mobile != nil {
		cols["mobile"] = *u.Mobile
	}
	for i, m := range u.Months {
		if m != nil {
			cols[models.MonthNames[i]] = *m
		}
	}
	return cols
}

// ApplyTo copies the present fields onto r.
func (u RecordUpdate) ApplyTo(r *models.MonthlyRecord) {
	if u.Username != nil {
		r.Username = *u.Username
	}
	if u.Mobile != nil {
		r.Mobile = *u.Mobile
	}
	for i, m := range u.Months {
		if m != nil {
			*r.Month(i) = *m
		}
	}
}

// RecordStore persists MonthlyRecord entities. Read paths resolve CreatedBy.
type RecordStore interface {
	CreateRecord(ctx context.Context, r *models.MonthlyRecord) error
	FindRecordByID(ctx context.Context, id uuid.UUID) (*models.MonthlyRecord, error)
	FindOneRecord(ctx context.Context, f RecordFilter) (*models.MonthlyRecord, error)
	FindRecords(ctx context.Context, f RecordFilter, p Page) ([]models.MonthlyRecord, error)
	CountRecords(ctx context.Context, f RecordFilter) (int64, error)
	UpdateRecordByID(ctx context.Context, id uuid.UUID, u RecordUpdate) (*models.MonthlyRecord, error)
	DeleteRecordByID(ctx context.Context, id uuid.UUID) error
}

// UserStore persists identities, roles and refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User, roleName string) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, hash []byte) error
	RoleName(ctx context.Context, u *models.User) (string, error)

	SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uint) error
}

// Store is a full backend with an explicit lifecycle.
type Store interface {
	RecordStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}
