// Package validation registers the marketplace binding rules on gin's validator
// and renders validator failures as field keyed messages.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/marketplace-api/internal/domain/inventory"
)

var (
	skuPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,63}$`)
	once       sync.Once
)

// Register installs the custom tags and the json tag name function. Safe to
// call more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("sku", validSKU)
		_ = v.RegisterValidation("adjustment_type", validAdjustmentType)
	})
}

func validSKU(fl validator.FieldLevel) bool {
	return skuPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validAdjustmentType(fl validator.FieldLevel) bool {
	return inventory.AdjustmentType(fl.Field().String()).Valid()
}

// Details maps each failing field to a readable message
func Details(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fieldPath(fe)] = message(fe)
	}
	return details
}

// fieldPath drops the top level struct name so nested fields read like
// "shipping_address.city"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "sku":
		return "must be 2-64 letters, digits, dashes or underscores"
	case "adjustment_type":
		return "must be one of: increase decrease set"
	}
	return "is invalid"
}
