package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	cssdUnitID   string
)

// InitValidator registers the CSSD tags on gin's validator engine. cssdUnit is
// the unit id the cssd_unit tag refuses; an empty value falls back to "cssd".
func InitValidator(cssdUnit string) {
	validateOnce.Do(func() {
		cssdUnitID = cssdUnit
		if cssdUnitID == "" {
			cssdUnitID = "cssd"
		}

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		RegisterValidations(v)
	})
}

// RegisterValidations adds the CSSD tags and JSON field naming to v
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("transaction_type", oneOf("DISTRIBUTE", "COLLECT"))
	_ = v.RegisterValidation("pack_type", oneOf("SINGLE_ITEMS", "SET", "MIXED"))
	_ = v.RegisterValidation("item_type", oneOf("SINGLE", "SET"))
	_ = v.RegisterValidation("sterilize_status", oneOf("SUCCESS", "FAILED"))
	_ = v.RegisterValidation("cssd_unit", validateNotCSSDUnit)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// oneOf accepts an empty value so optional fields can carry the tag
func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

func validateNotCSSDUnit(fl validator.FieldLevel) bool {
	unit := cssdUnitID
	if unit == "" {
		unit = "cssd"
	}
	return fl.Field().String() != unit
}
