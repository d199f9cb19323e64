package memory

import (
	"context"
	"testing"
	"time"

	"monthlydata/internal/store"
	"monthlydata/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock hands out strictly increasing times one second apart.
func fixedClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newStoreWithCreator(t *testing.T) (*Store, *models.User) {
	t.Helper()
	s := New(WithClock(fixedClock()))
	u := &models.User{Username: "admin", Email: "admin@example.com"}
	require.NoError(t, s.CreateUser(context.Background(), u, models.RoleAdministrator))
	return s, u
}

func TestCreateRecordResolvesCreator(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()

	r := &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", Jan: 100, CreatedByID: admin.ID}
	require.NoError(t, s.CreateRecord(ctx, r))
	assert.NotEqual(t, uuid.Nil, r.ID)
	require.NotNil(t, r.CreatedBy)
	assert.Equal(t, "admin", r.CreatedBy.Username)
	assert.Equal(t, "admin@example.com", r.CreatedBy.Email)

	got, err := s.FindRecordByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Jan)
	assert.Equal(t, 0.0, got.Feb)
	assert.Equal(t, admin.ID, got.CreatedBy.ID)
}

func TestCreateRecordRejectsDuplicatePair(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRecord(ctx, &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID}))
	err := s.CreateRecord(ctx, &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// same username, different mobile is a different pair
	require.NoError(t, s.CreateRecord(ctx, &models.MonthlyRecord{Username: "alice", Mobile: "1111111111", CreatedByID: admin.ID}))
}

func TestCreateRecordUnknownCreator(t *testing.T) {
	s := New()
	err := s.CreateRecord(context.Background(), &models.MonthlyRecord{Username: "bob", Mobile: "1234567890", CreatedByID: 42})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrDuplicate)
}

func TestFindRecordsNewestFirstWithPaging(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 12; i++ {
		r := &models.MonthlyRecord{Username: "user", Mobile: "90000000" + twoDigits(i), CreatedByID: admin.ID}
		require.NoError(t, s.CreateRecord(ctx, r))
		ids = append(ids, r.ID)
	}

	page, err := s.FindRecords(ctx, store.RecordFilter{}, store.Page{Skip: 5, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	// newest first: index 11 is the newest, so skip 5 starts at index 6
	for i, r := range page {
		assert.Equal(t, ids[11-5-i], r.ID)
		require.NotNil(t, r.CreatedBy)
	}

	last, err := s.FindRecords(ctx, store.RecordFilter{}, store.Page{Skip: 10, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, last, 2)

	none, err := s.FindRecords(ctx, store.RecordFilter{}, store.Page{Skip: 20, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err := s.CountRecords(ctx, store.RecordFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)
}

func TestFindRecordsStableOnEqualTimestamps(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return at }))
	ctx := context.Background()
	u := &models.User{Username: "admin"}
	require.NoError(t, s.CreateUser(ctx, u, models.RoleAdministrator))

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		r := &models.MonthlyRecord{Username: "same", Mobile: "12345678" + twoDigits(i), CreatedByID: u.ID}
		require.NoError(t, s.CreateRecord(ctx, r))
		ids = append(ids, r.ID)
	}
	for run := 0; run < 3; run++ {
		got, err := s.FindRecords(ctx, store.RecordFilter{}, store.Page{Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i := range got {
			assert.Equal(t, ids[3-i], got[i].ID)
		}
	}
}

func TestFindOneRecordExclude(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()
	r := &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID}
	require.NoError(t, s.CreateRecord(ctx, r))

	got, err := s.FindOneRecord(ctx, store.RecordFilter{Username: "alice", Mobile: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = s.FindOneRecord(ctx, store.RecordFilter{Username: "alice", Mobile: "9876543210", ExcludeID: r.ID})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRecordPartial(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()
	r := &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", Jan: 100, CreatedByID: admin.ID}
	require.NoError(t, s.CreateRecord(ctx, r))

	feb := 50.0
	upd := store.RecordUpdate{}
	upd.Months[1] = &feb

	got, err := s.UpdateRecordByID(ctx, r.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Jan)
	assert.Equal(t, 50.0, got.Feb)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	again, err := s.UpdateRecordByID(ctx, r.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, got.Jan, again.Jan)
	assert.Equal(t, got.Feb, again.Feb)
}

func TestUpdateRecordMovesPair(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()
	a := &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID}
	b := &models.MonthlyRecord{Username: "bob", Mobile: "1234567890", CreatedByID: admin.ID}
	require.NoError(t, s.CreateRecord(ctx, a))
	require.NoError(t, s.CreateRecord(ctx, b))

	name, mobile := "alice", "9876543210"
	_, err := s.UpdateRecordByID(ctx, b.ID, store.RecordUpdate{Username: &name, Mobile: &mobile})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	name = "carol"
	_, err = s.UpdateRecordByID(ctx, a.ID, store.RecordUpdate{Username: &name})
	require.NoError(t, err)
	// the old pair is free again
	require.NoError(t, s.CreateRecord(ctx, &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID}))

	_, err = s.UpdateRecordByID(ctx, uuid.New(), store.RecordUpdate{Username: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteRecord(t *testing.T) {
	s, admin := newStoreWithCreator(t)
	ctx := context.Background()
	r := &models.MonthlyRecord{Username: "alice", Mobile: "9876543210", CreatedByID: admin.ID}
	require.NoError(t, s.CreateRecord(ctx, r))

	require.NoError(t, s.DeleteRecordByID(ctx, r.ID))
	_, err := s.FindRecordByID(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRecordByID(ctx, r.ID), store.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	s, _ := newStoreWithCreator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FindRecords(ctx, store.RecordFilter{}, store.Page{Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUsersAndTokens(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &models.User{Username: " viewer ", HashedPassword: []byte("x")}
	require.NoError(t, s.CreateUser(ctx, u, models.RoleUser))
	assert.Equal(t, "viewer", u.Username)
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{Username: "viewer"}, models.RoleUser), store.ErrDuplicate)

	got, err := s.FindUserByUsername(ctx, "viewer")
	require.NoError(t, err)
	role, err := s.RoleName(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	require.NoError(t, s.UpdatePassword(ctx, u.ID, []byte("y")))
	got, err = s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got.HashedPassword)

	rt := &models.RefreshToken{UserID: u.ID, TokenHash: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.SaveRefreshToken(ctx, rt))
	require.NoError(t, s.RevokeRefreshToken(ctx, rt.ID))
	found, err := s.FindRefreshToken(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found.Revoked)
	_, err = s.FindRefreshToken(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}
