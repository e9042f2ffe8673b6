package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Bind decodes req.Fields into out and validates it. Fields tagged
// `validate:"required"` that are absent are returned by their JSON name, in
// struct order, and are not an error. Any other validation failure is.
func Bind(req Request, out any) ([]string, error) {
	raw, err := json.Marshal(req.Fields)
	if err != nil {
		return nil, fmt.Errorf("encode request fields: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode request fields: %w", err)
	}

	err = validate.Struct(out)
	if err == nil {
		return nil, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	var missing []string
	for _, fe := range fieldErrs {
		if fe.Tag() != "required" {
			return nil, fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
		}
		missing = append(missing, fe.Field())
	}
	return missing, nil
}
