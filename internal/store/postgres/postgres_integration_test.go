//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"monthlydata/internal/store"
	"monthlydata/internal/testutil"
	"monthlydata/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, *models.User) {
	t.Helper()
	s, err := Open(testutil.PostgresDSN(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.db.Exec("TRUNCATE TABLE monthly_records, refresh_tokens, users RESTART IDENTITY CASCADE").Error)

	admin := &models.User{Username: "admin", Email: "admin@example.com", HashedPassword: []byte("x")}
	require.NoError(t, s.CreateUser(ctx, admin, models.RoleAdministrator))
	return s, admin
}

func TestRecordLifecycle(t *testing.T) {
	s, admin := openTestStore(t)
	ctx := context.Background()

	r := &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", Jan: 100, CreatedByID: admin.ID}
	require.NoError(t, s.CreateRecord(ctx, r))
	require.NotNil(t, r.CreatedBy)
	assert.Equal(t, "admin@example.com", r.CreatedBy.Email)

	got, err := s.FindRecordByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Jan)
	assert.Equal(t, 0.0, got.Dec)
	assert.Equal(t, "admin", got.CreatedBy.Username)

	err = s.CreateRecord(ctx, &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	feb, zero := 50.0, 0.0
	upd := store.RecordUpdate{}
	upd.Months[1] = &feb
	upd.Months[0] = &zero
	updated, err := s.UpdateRecordByID(ctx, r.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, 0.0, updated.Jan)
	assert.Equal(t, 50.0, updated.Feb)

	_, err = s.UpdateRecordByID(ctx, uuid.New(), upd)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteRecordByID(ctx, r.ID))
	assert.ErrorIs(t, s.DeleteRecordByID(ctx, r.ID), store.ErrNotFound)
	_, err = s.FindRecordByID(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPagingAndCount(t *testing.T) {
	s, admin := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		r := &models.MonthlyRecord{Username: "user", Mobile: fmt.Sprintf("90000000%02d", i), CreatedByID: admin.ID}
		require.NoError(t, s.CreateRecord(ctx, r))
	}
	page, err := s.FindRecords(ctx, store.RecordFilter{}, store.Page{Skip: 5, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page, 5)
	for i := 1; i < len(page); i++ {
		assert.False(t, page[i].CreatedAt.After(page[i-1].CreatedAt))
	}
	n, err := s.CountRecords(ctx, store.RecordFilter{Username: "user"})
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
}

func TestConcurrentCreateSamePair(t *testing.T) {
	s, admin := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateRecord(ctx, &models.MonthlyRecord{Username: "race", Mobile: "5555555555", CreatedByID: admin.ID})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, store.ErrDuplicate):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, len(errs)-1, dup)
}
