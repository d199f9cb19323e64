package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MonthNames lists the month fields in calendar order. They double as JSON keys and column names.
var MonthNames = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// MonthlyRecord holds twelve monthly figures for one username+mobile pair.
type MonthlyRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"_id"`
	Username string    `gorm:"size:255;not null;uniqueIndex:idx_monthly_username_mobile" json:"username"`
	Mobile   string    `gorm:"size:10;not null;uniqueIndex:idx_monthly_username_mobile" json:"mobile"`

	Jan float64 `gorm:"not null;default:0" json:"jan"`
	Feb float64 `gorm:"not null;default:0" json:"feb"`
	Mar float64 `gorm:"not null;default:0" json:"mar"`
	Apr float64 `gorm:"not null;default:0" json:"apr"`
	May float64 `gorm:"not null;default:0" json:"may"`
	Jun float64 `gorm:"not null;default:0" json:"jun"`
	Jul float64 `gorm:"not null;default:0" json:"jul"`
	Aug float64 `gorm:"not null;default:0" json:"aug"`
	Sep float64 `gorm:"not null;default:0" json:"sep"`
	Oct float64 `gorm:"not null;default:0" json:"oct"`
	Nov float64 `gorm:"not null;default:0" json:"nov"`
	Dec float64 `gorm:"not null;default:0" json:"dec"`

	CreatedByID uint     `gorm:"column:created_by;not null;index" json:"-"`
	CreatedBy   *Creator `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"createdBy"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns the opaque id when the caller did not.
func (r *MonthlyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Month returns a pointer to the i-th month field (0 = jan). It panics on an out-of-range index.
func (r *MonthlyRecord) Month(i int) *float64 {
	switch i {
	case 0:
		return &r.Jan
	case 1:
		return &r.Feb
	case 2:
		return &r.Mar
	case 3:
		return &r.Apr
	case 4:
		return &r.May
	case 5:
		return &r.Jun
	case 6:
		return &r.Jul
	case 7:
		return &r.Aug
	case 8:
		return &r.Sep
	case 9:
		return &r.Oct
	case 10:
		return &r.Nov
	case 11:
		return &r.Dec
	}
	panic("models: month index out of range")
}

// Total sums the twelve month fields.
func (r *MonthlyRecord) Total() float64 {
	var sum float64
	for i := range MonthNames {
		sum += *r.Month(i)
	}
	return sum
}
