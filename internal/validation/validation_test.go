package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

type sample struct {
	StaffID int64               `json:"-" validate:"gt=0"`
	Amount  decimal.Decimal     `json:"paymentAmount" validate:"gte=0"`
	Fee     *decimal.Decimal    `json:"lateCheckoutFee" validate:"omitempty,gte=0"`
	Method  model.PaymentMethod `json:"paymentMethod" validate:"omitempty,payment_method"`
	Reason  string              `json:"reason" validate:"max=5"`
}

func TestStruct(t *testing.T) {
	v := New()
	negative := decimal.NewFromInt(-1)
	positive := decimal.NewFromInt(15)

	tests := []struct {
		name   string
		in     sample
		fields []string
	}{
		{
			name: "valid",
			in:   sample{StaffID: 1, Amount: decimal.NewFromInt(10), Fee: &positive, Method: model.PaymentMethodCash},
		},
		{
			name:   "missing staff",
			in:     sample{},
			fields: []string{"staffID"},
		},
		{
			name:   "negative amounts",
			in:     sample{StaffID: 1, Amount: decimal.NewFromInt(-5), Fee: &negative},
			fields: []string{"paymentAmount", "lateCheckoutFee"},
		},
		{
			name:   "unknown method and long reason",
			in:     sample{StaffID: 1, Method: "BARTER", Reason: "too long"},
			fields: []string{"paymentMethod", "reason"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if len(tt.fields) == 0 {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Len(t, err.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, err.Fields, f)
			}
		})
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{name: "whole", value: "350", ok: true},
		{name: "cents", value: "350.55", ok: true},
		{name: "trailing zeros", value: "12.5000", ok: true},
		{name: "sub-cent", value: "0.004", ok: false},
		{name: "negative sub-cent", value: "-1.005", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decimal.RequireFromString(tt.value)
			verr := &apperr.ValidationError{}
			Money(verr, "paymentAmount", &d)
			if tt.ok {
				assert.True(t, verr.Empty())
				return
			}
			assert.Contains(t, verr.Fields, "paymentAmount")
		})
	}

	verr := &apperr.ValidationError{}
	Money(verr, "lateCheckoutFee", nil)
	assert.True(t, verr.Empty())
}

func TestID(t *testing.T) {
	assert.Nil(t, ID("reservationId", 1))
	err := ID("reservationId", 0)
	require.NotNil(t, err)
	assert.Contains(t, err.Fields, "reservationId")
}

func TestMerge(t *testing.T) {
	assert.Nil(t, Merge(nil, nil))

	got := Merge(ID("reservationId", -1), nil, ID("staffId", 0))
	require.NotNil(t, got)
	assert.Len(t, got.Fields, 2)
}

func TestIsPaymentMethod(t *testing.T) {
	assert.True(t, IsPaymentMethod(model.PaymentMethodCard))
	assert.False(t, IsPaymentMethod(""))
	assert.False(t, IsPaymentMethod("CHEQUE"))
}
