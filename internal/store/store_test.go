package store

import (
	"testing"

	"monthlydata/models"

	"github.com/stretchr/testify/assert"
)

func TestRecordUpdate(t *testing.T) {
	var u RecordUpdate
	assert.True(t, u.Empty())
	assert.Empty(t, u.Columns())

	name := "alice"
	zero := 0.0
	dec := 12.5
	u.Username = &name
	u.Months[0] = &zero
	u.Months[11] = &dec
	assert.False(t, u.Empty())
	assert.Equal(t, map[string]any{"username": "alice", "jan": 0.0, "dec": 12.5}, u.Columns())

	r := models.MonthlyRecord{Username: "old", Mobile: "1234567890", Jan: 7, Feb: 8}
	u.ApplyTo(&r)
	assert.Equal(t, "alice", r.Username)
	assert.Equal(t, "1234567890", r.Mobile)
	assert.Equal(t, 0.0, r.Jan, "explicit zero overwrites")
	assert.Equal(t, 8.0, r.Feb, "absent month is kept")
	assert.Equal(t, 12.5, r.Dec)
}
