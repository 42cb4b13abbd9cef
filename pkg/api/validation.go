package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
)

// BindAndValidate binds the JSON body into obj and runs its binding tags
func BindAndValidate(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		return bindError(err, "invalid request body")
	}
	return nil
}

// BindQueryAndValidate binds query parameters into obj and runs its binding tags
func BindQueryAndValidate(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		return bindError(err, "invalid query parameters")
	}
	return nil
}

func bindError(err error, prefix string) *errors.AppError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrBadRequest(fmt.Sprintf("%s: %v", prefix, err))
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fieldPath(fe)] = message(fe)
	}
	return errors.ErrValidationWithFields("validation failed", fields)
}

// fieldPath turns "CreateTransactionRequest.Items[0].Count" into "items[0].count"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	if field != "" {
		field = strings.ToLower(field[:1]) + field[1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "transaction_type":
		return fmt.Sprintf("%s must be DISTRIBUTE or COLLECT", field)
	case "pack_type":
		return fmt.Sprintf("%s must be SINGLE_ITEMS, SET or MIXED", field)
	case "item_type":
		return fmt.Sprintf("%s must be SINGLE or SET", field)
	case "sterilize_status":
		return fmt.Sprintf("%s must be SUCCESS or FAILED", field)
	case "cssd_unit":
		return fmt.Sprintf("%s cannot be the CSSD unit", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
