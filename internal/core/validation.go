// AngelaMos | 2026
// validation.go

package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	orderIDPattern   = regexp.MustCompile(`^order_[a-zA-Z0-9]+$`)
	paymentIDPattern = regexp.MustCompile(`^pay_[a-zA-Z0-9]+$`)
	signaturePattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

// NewValidator returns a validator that reports fields by their json name and
// knows the provider id formats.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // tags are static and non-empty
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	//nolint:errcheck // tags are static and non-empty
	_ = v.RegisterValidation("order_id", matches(orderIDPattern))
	//nolint:errcheck // tags are static and non-empty
	_ = v.RegisterValidation("payment_id", matches(paymentIDPattern))
	//nolint:errcheck // tags are static and non-empty
	_ = v.RegisterValidation("hex_signature", matches(signaturePattern))

	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func IsValidOrderID(s string) bool {
	return orderIDPattern.MatchString(s)
}
