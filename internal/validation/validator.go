// Package validation wraps go-playground/validator with the catalogue's
// custom rules. The validator instance is a process-wide singleton so struct
// metadata is cached across calls.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// EarliestReleaseYear is the year the label released its first record.
const EarliestReleaseYear = 1969

// LabelHost is the only host musician pages may live on.
const LabelHost = "www.ecm.com"

var (
	validate     *validator.Validate
	validateOnce sync.Once

	// now is replaced in tests that need a fixed current year.
	now = time.Now
)

// FieldError describes a single failed rule.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s failed %s", e.Field, e.Tag)
}

// Errors is the list of rule failures for one struct.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Validator returns the shared validator, registering custom rules on first use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		mustRegister(v, "fullname", validateFullName)
		mustRegister(v, "releaseyear", validateReleaseYear)
		mustRegister(v, "ecmurl", validateLabelURL)
		mustRegister(v, "offlabel", validateOffLabelURL)
		mustRegister(v, "wikiurl", validateWikiURL)
		mustRegister(v, "maxwords", validateMaxWords)
		mustRegister(v, "notblank", validateNotBlank)
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Struct validates s and flattens validator errors into Errors.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// CurrentYear is the upper bound for album release years.
func CurrentYear() int {
	return now().Year()
}

func validateFullName(fl validator.FieldLevel) bool {
	return len(strings.Fields(fl.Field().String())) >= 2
}

func validateReleaseYear(fl validator.FieldLevel) bool {
	year := int(fl.Field().Int())
	return year >= EarliestReleaseYear && year <= CurrentYear()
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Empty values pass the URL rules; pair them with required when mandatory.
func validateLabelURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host == LabelHost
}

func validateOffLabelURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	return !strings.HasSuffix(host, "ecm.com") && !strings.HasSuffix(host, "wikipedia.org")
}

func validateWikiURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && strings.HasSuffix(strings.ToLower(u.Host), "wikipedia.org")
}

func validateMaxWords(fl validator.FieldLevel) bool {
	var limit int
	if _, err := fmt.Sscanf(fl.Param(), "%d", &limit); err != nil {
		return false
	}
	return len(strings.Fields(fl.Field().String())) <= limit
}
