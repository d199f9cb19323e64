// Package validation checks record write payloads before they reach the store.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"monthlydata/internal/store"
	"monthlydata/models"

	"github.com/go-playground/validator/v10"
)

const (
	MsgUsernameRequired = "Username is required"
	MsgMobileInvalid    = "Please enter a valid 10-digit mobile number"
	MsgMonthNotNumber   = "Month value must be a number"
)

var mobileRE = regexp.MustCompile(`^\d{10}$`)

// messages maps a json field name and validator tag onto the client-facing message.
var messages = map[string]string{
	"username.required": MsgUsernameRequired,
	"mobile.mobile":     MsgMobileInvalid,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileRE.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Param    string `json:"param"`
	Location string `json:"location"`
	Value    any    `json:"value"`
}

// Errors is the list of failed rules for one payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Param + ": " + fe.Msg
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func fieldError(param, msg string, value any) FieldError {
	return FieldError{Type: "field", Msg: msg, Param: param, Location: "body", Value: value}
}

// Text accepts a JSON string or number. Anything else leaves it empty so the
// field's own rule rejects it.
type Text struct {
	Value string
}

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.Value = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		t.Value = n.String()
		return nil
	}
	t.Value = ""
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) { return json.Marshal(t.Value) }

// Month is an optional month value. Null and absent are the same; a present value that
// is not a JSON number is kept as raw text and reported by Validate.
type Month struct {
	Set   bool
	Value float64
	raw   json.RawMessage
}

func (m *Month) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Month{}
		return nil
	}
	m.Set = true
	m.raw = append(m.raw[:0], b...)
	if err := json.Unmarshal(b, &m.Value); err != nil {
		m.Value = 0
		return nil
	}
	m.raw = nil
	return nil
}

func (m Month) valid() bool { return !m.Set || m.raw == nil }

// sent is the rejected value as the client sent it.
func (m Month) sent() any {
	var v any
	if err := json.Unmarshal(m.raw, &v); err != nil {
		return string(m.raw)
	}
	return v
}

// Ptr returns the value when present.
func (m Month) Ptr() *float64 {
	if !m.Set || m.raw != nil {
		return nil
	}
	v := m.Value
	return &v
}

// RecordInput is the create/update payload.
type RecordInput struct {
	Username Text `json:"username"`
	Mobile   Text `json:"mobile"`

	Jan Month `json:"jan"`
	Feb Month `json:"feb"`
	Mar Month `json:"mar"`
	Apr Month `json:"apr"`
	May Month `json:"may"`
	Jun Month `json:"jun"`
	Jul Month `json:"jul"`
	Aug Month `json:"aug"`
	Sep Month `json:"sep"`
	Oct Month `json:"oct"`
	Nov Month `json:"nov"`
	Dec Month `json:"dec"`
}

// Months returns the month inputs in calendar order.
func (in *RecordInput) Months() [12]Month {
	return [12]Month{in.Jan, in.Feb, in.Mar, in.Apr, in.May, in.Jun, in.Jul, in.Aug, in.Sep, in.Oct, in.Nov, in.Dec}
}

func (in *RecordInput) month(i int) *Month {
	switch i {
	case 0:
		return &in.Jan
	case 1:
		return &in.Feb
	case 2:
		return &in.Mar
	case 3:
		return &in.Apr
	case 4:
		return &in.May
	case 5:
		return &in.Jun
	case 6:
		return &in.Jul
	case 7:
		return &in.Aug
	case 8:
		return &in.Sep
	case 9:
		return &in.Oct
	case 10:
		return &in.Nov
	case 11:
		return &in.Dec
	}
	panic("validation: month index out of range")
}

// SetMonth sets the i-th month (0 = jan).
func (in *RecordInput) SetMonth(i int, v float64) {
	*in.month(i) = Month{Set: true, Value: v}
}

// SetMonthText sets the i-th month from a text cell. Blank text leaves it absent;
// text that is not a number is kept so Validate reports it.
func (in *RecordInput) SetMonthText(i int, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		*in.month(i) = Month{}
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*in.month(i) = Month{Set: true, raw: json.RawMessage(strconv.Quote(s))}
		return
	}
	*in.month(i) = Month{Set: true, Value: v}
}

type identityFields struct {
	Username string `json:"username" validate:"required"`
	Mobile   string `json:"mobile" validate:"mobile"`
}

// Validate trims username and mobile in place and reports every failed rule, or nil.
func Validate(in *RecordInput) Errors {
	in.Username.Value = strings.TrimSpace(in.Username.Value)
	in.Mobile.Value = strings.TrimSpace(in.Mobile.Value)

	var out Errors
	err := validate.Struct(identityFields{Username: in.Username.Value, Mobile: in.Mobile.Value})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			msg, ok := messages[fe.Field()+"."+fe.Tag()]
			if !ok {
				msg = "Invalid value"
			}
			out = append(out, fieldError(fe.Field(), msg, fe.Value()))
		}
	} else if err != nil {
		out = append(out, fieldError("", err.Error(), nil))
	}

	for i, m := range in.Months() {
		if !m.valid() {
			out = append(out, fieldError(models.MonthNames[i], MsgMonthNotNumber, m.sent()))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ToRecord builds a new record; absent months are zero.
func (in *RecordInput) ToRecord(createdBy uint) models.MonthlyRecord {
	r := models.MonthlyRecord{
		Username:    in.Username.Value,
		Mobile:      in.Mobile.Value,
		CreatedByID: createdBy,
	}
	for i, m := range in.Months() {
		if p := m.Ptr(); p != nil {
			*r.Month(i) = *p
		}
	}
	return r
}

// ToUpdate replaces username and mobile and carries only the months that were sent.
func (in *RecordInput) ToUpdate() store.RecordUpdate {
	username, mobile := in.Username.Value, in.Mobile.Value
	u := store.RecordUpdate{Username: &username, Mobile: &mobile}
	for i, m := range in.Months() {
		u.Months[i] = m.Ptr()
	}
	return u
}
