// Package validation содержит проверку входных данных операций до обращения к хранилищу.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/apperr"
	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// Validator проверяет структуры по тегам validate и возвращает *apperr.ValidationError.
type Validator struct {
	v *validator.Validate
}

// New создаёт валидатор. Поля decimal.Decimal сравниваются как числа,
// имена полей в ошибках берутся из тега json.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return lowerFirst(f.Name)
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		fl, _ := d.Float64()
		return fl
	}, decimal.Decimal{})

	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return IsPaymentMethod(model.PaymentMethod(fl.Field().String()))
	})

	return &Validator{v: v}
}

// Struct проверяет s. Возвращает nil или *apperr.ValidationError с ошибками по полям.
func (val *Validator) Struct(s interface{}) *apperr.ValidationError {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	out := &apperr.ValidationError{}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("request", err.Error())
		return out
	}

	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

// ID проверяет идентификатор сущности.
func ID(field string, id int64) *apperr.ValidationError {
	if id <= 0 {
		return apperr.NewValidation(field, "must be a positive identifier")
	}
	return nil
}

// MoneyScale - число знаков после запятой, которое хранится для денежных сумм.
const MoneyScale = 2

// Money проверяет, что сумма не точнее минимальной единицы валюты.
// Nil-указатель означает отсутствие суммы.
func Money(verr *apperr.ValidationError, field string, d *decimal.Decimal) {
	if d == nil {
		return
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		verr.Add(field, fmt.Sprintf("must have at most %d decimal places", MoneyScale))
	}
}

// IsPaymentMethod сообщает, что способ оплаты поддерживается.
func IsPaymentMethod(m model.PaymentMethod) bool {
	switch m {
	case model.PaymentMethodCash, model.PaymentMethodCard, model.PaymentMethodBankTransfer, model.PaymentMethodMobileWallet:
		return true
	}
	return false
}

// Merge объединяет ошибки валидации. Возвращает nil, если ошибок нет.
func Merge(errs ...*apperr.ValidationError) *apperr.ValidationError {
	out := &apperr.ValidationError{}
	for _, e := range errs {
		if e == nil {
			continue
		}
		for k, v := range e.Fields {
			out.Add(k, v)
		}
	}
	if out.Empty() {
		return nil
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "payment_method":
		return "must be one of CASH, CARD, BANK_TRANSFER, MOBILE_WALLET"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
