package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindWholeNumber
	kindStringList
)

type fieldSpec struct {
	name string
	kind fieldKind
}

var (
	landlordFields = []fieldSpec{
		{"fullName", kindString},
		{"numberOfProperties", kindWholeNumber},
	}
	tenantFields = []fieldSpec{
		{"fullName", kindString},
		{"currentAddress", kindString},
		{"currentIncome", kindNumber},
		{"jobTitle", kindString},
		{"areaToMove", kindString},
		{"moveDate", kindString},
		{"smoker", kindString},
		{"pets", kindWholeNumber},
		{"numberOfPeople", kindWholeNumber},
		{"miles", kindNumber},
		{"summary", kindString},
	}
	serviceFields = []fieldSpec{
		{"fullName", kindString},
		{"availability", kindStringList},
		{"keySkills", kindStringList},
		{"areaToMove", kindString},
		{"miles", kindNumber},
		{"summary", kindString},
		{"images", kindStringList},
	}
)

func fieldsFor(role Role) []fieldSpec {
	switch role {
	case RoleLandlord:
		return landlordFields
	case RoleTenant:
		return tenantFields
	case RoleMaintenance, RoleCleaner:
		return serviceFields
	}
	return nil
}

// requiredField is the field whose presence identifies the role's variant.
func requiredField(role Role) fieldSpec {
	switch role {
	case RoleLandlord:
		return fieldSpec{"numberOfProperties", kindWholeNumber}
	case RoleTenant:
		return fieldSpec{"currentAddress", kindString}
	default:
		return fieldSpec{"availability", kindStringList}
	}
}

var profileRules = newProfileRules()

func newProfileRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CheckProfileShape is the coarse boundary check run before any store I/O.
// The role is checked first; then the role's identifying field must be present,
// and every present field must carry the right primitive type.
func CheckProfileShape(role string, raw map[string]any) error {
	r, err := ParseRole(role)
	if err != nil {
		return err
	}

	fields := profileFields(raw)
	if fields == nil {
		return &ValidationError{Role: role, Field: "profile", Reason: "is required"}
	}

	req := requiredField(r)
	if isAbsent(fields[req.name]) {
		return &ValidationError{Role: role, Field: req.name, Reason: "is required"}
	}

	for _, f := range fieldsFor(r) {
		v, ok := fields[f.name]
		if !ok || isAbsent(v) {
			continue
		}
		if reason := checkKind(v, f.kind); reason != "" {
			return &ValidationError{Role: role, Field: f.name, Reason: reason}
		}
	}
	return nil
}

// NormalizeProfile builds the concrete variant for role from an untyped payload,
// coercing numeric strings and filling defaults for absent fields.
func NormalizeProfile(role Role, raw map[string]any) (Profile, error) {
	if err := CheckProfileShape(string(role), raw); err != nil {
		return nil, err
	}
	fields := profileFields(raw)

	var p Profile
	switch role {
	case RoleLandlord:
		p = LandlordProfile{
			FullName:           stringField(fields, "fullName"),
			NumberOfProperties: int(numberField(fields, "numberOfProperties")),
		}
	case RoleTenant:
		smoker := strings.ToLower(stringField(fields, "smoker"))
		if smoker == "" {
			smoker = "no"
		}
		p = TenantProfile{
			FullName:       stringField(fields, "fullName"),
			CurrentAddress: stringField(fields, "currentAddress"),
			CurrentIncome:  numberField(fields, "currentIncome"),
			JobTitle:       stringField(fields, "jobTitle"),
			AreaToMove:     stringField(fields, "areaToMove"),
			MoveDate:       stringField(fields, "moveDate"),
			Smoker:         smoker,
			Pets:           int(numberField(fields, "pets")),
			NumberOfPeople: int(numberField(fields, "numberOfPeople")),
			Miles:          numberField(fields, "miles"),
			Summary:        stringField(fields, "summary"),
		}
	case RoleMaintenance, RoleCleaner:
		p = ServiceProfile{
			FullName:     stringField(fields, "fullName"),
			Availability: listField(fields, "availability"),
			KeySkills:    listField(fields, "keySkills"),
			AreaToMove:   stringField(fields, "areaToMove"),
			Miles:        numberField(fields, "miles"),
			Summary:      stringField(fields, "summary"),
			Images:       listField(fields, "images"),
		}
	}

	if err := profileRules.Struct(p); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return nil, &ValidationError{Role: string(role), Field: ve[0].Field(), Reason: ruleReason(ve[0])}
		}
		return nil, fmt.Errorf("validate %s profile: %w", role, err)
	}
	return p, nil
}

// profileFields accepts both the flat field map and the {"role", "details"} envelope.
func profileFields(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	if details, ok := raw["details"]; ok {
		if m, ok := details.(map[string]any); ok {
			return m
		}
		return map[string]any{}
	}
	return raw
}

// isAbsent treats JSON null like a missing key.
func isAbsent(v any) bool {
	return v == nil
}

func checkKind(v any, kind fieldKind) string {
	switch kind {
	case kindString:
		if _, ok := v.(string); !ok {
			return "must be a string"
		}
	case kindNumber:
		if _, ok := coerceNumber(v); !ok {
			return "must be a number"
		}
	case kindWholeNumber:
		n, ok := coerceNumber(v)
		if !ok {
			return "must be a number"
		}
		if n != math.Trunc(n) {
			return "must be a whole number"
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return "is out of range"
		}
	case kindStringList:
		list, ok := v.([]any)
		if !ok {
			if _, ok := v.([]string); ok {
				return ""
			}
			return "must be an array of strings"
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return "must be an array of strings"
			}
		}
	}
	return ""
}

// coerceNumber accepts JSON numbers and numeric strings. An empty string counts as zero.
func coerceNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return strings.TrimSpace(s)
}

func numberField(fields map[string]any, name string) float64 {
	v, ok := fields[name]
	if !ok || v == nil {
		return 0
	}
	n, _ := coerceNumber(v)
	return n
}

func listField(fields map[string]any, name string) []string {
	out := []string{}
	switch t := fields[name].(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func ruleReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must not be negative"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
