package dto

import (
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Fractional digits accepted on the wire.
const (
	CeilingPlaces int32 = 2
	LoanPlaces    int32 = 2
	PaymentPlaces int32 = 10
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Empty strings pass; pair with required where the field is mandatory.
	mustRegister(v, "money2", amountRule(LoanPlaces))
	mustRegister(v, "money10", amountRule(PaymentPlaces))
	mustRegister(v, "loan_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "PENDING", "ACTIVE", "REJECTED", "PAID":
			return true
		}
		return false
	})
	mustRegister(v, "customer_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "ACTIVE", "INACTIVE":
			return true
		}
		return false
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func amountRule(places int32) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := ParseAmount(s, places)
		return err == nil
	}
}

// ParseAmount parses a non-negative decimal string carrying at most places
// significant fractional digits.
func ParseAmount(s string, places int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a decimal number: %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	if !d.Equal(d.Truncate(places)) {
		return decimal.Zero, fmt.Errorf("must have at most %d fractional digits", places)
	}
	return d, nil
}

// Validate runs the struct tags of req and converts the first failure into an
// apperrors validation error naming the JSON field.
func Validate(req any) error {
	validateOnce.Do(func() { validate = newValidator() })

	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}
	fe := verrs[0]
	return apperrors.NewValidationError(fieldPath(fe), describe(fe))
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "money2":
		return fmt.Sprintf("must be a non-negative amount with at most %d fractional digits", LoanPlaces)
	case "money10":
		return fmt.Sprintf("must be a non-negative amount with at most %d fractional digits", PaymentPlaces)
	case "loan_status":
		return "must be one of PENDING, ACTIVE, REJECTED, PAID"
	case "customer_status":
		return "must be one of ACTIVE, INACTIVE"
	}
	return "failed on " + fe.Tag()
}
