// Package validation wraps a singleton go-playground validator and converts its failures into
// apperr validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"restoran-pos/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Enum sets checked by the custom tags. Kept here so the validator has no model dependency.
var enums = map[string][]string{
	"ordertype":   {"dine_in", "takeaway", "delivery", "online"},
	"orderstatus": {"pending", "confirmed", "preparing", "ready", "served", "completed", "cancelled"},
	"itemstatus":  {"pending", "preparing", "ready", "served"},
	"tablestatus": {"available", "occupied", "reserved", "cleaning", "out_of_order"},
	"role":        {"admin", "manager", "cashier", "waiter", "kitchen_staff", "customer"},
	"paymethod":   {"cash", "card", "upi", "wallet", "online", "other"},
	"movement":    {"purchase", "consumption", "adjustment", "waste", "return"},
	"discount":    {"percentage", "fixed"},
}

func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		for tag, values := range enums {
			_ = validate.RegisterValidation(tag, oneOf(values))
		}
	})
	return validate
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

// Struct validates v and returns an *apperr.Error of kind Validation on failure.
func Struct(v any) error {
	err := Get().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}

	fields := make(map[string]string, len(verrs))
	var first string
	for _, fe := range verrs {
		msg := message(fe)
		fields[fieldPath(fe)] = msg
		if first == "" {
			first = msg
		}
	}
	ae := apperr.Validation(first)
	ae.Fields = fields
	return ae
}

// BindJSON parses the request body into dst and validates it.
func BindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return Struct(dst)
}

// fieldPath drops the top-level struct name: "createOrderRequest.items[0].quantity" -> "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	if values, ok := enums[fe.Tag()]; ok {
		return fmt.Sprintf("%s must be one of [%s]", field, strings.Join(values, " "))
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
