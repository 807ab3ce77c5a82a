package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/seedbank/pkg/storeerr"
)

// Filter selects which seeds a listing shows.
type Filter string

const (
	FilterActive   Filter = "active"
	FilterOutdated Filter = "outdated"
	FilterArchived Filter = "archived"
	FilterAll      Filter = "all"
)

// Filters is the cycling order of Filter.
var Filters = []Filter{FilterActive, FilterOutdated, FilterArchived, FilterAll}

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", storeerr.Invalid("filter", "unknown filter %q (want active, outdated, archived or all)", s)
}

// Model is the model a thought agent runs with.
type Model string

const (
	ModelOpus   Model = "opus"
	ModelSonnet Model = "sonnet"
	ModelHaiku  Model = "haiku"
)

// Models is the cycling order of Model.
var Models = []Model{ModelOpus, ModelSonnet, ModelHaiku}

// ParseModel validates a model name.
func ParseModel(s string) (Model, error) {
	for _, m := range Models {
		if string(m) == s {
			return m, nil
		}
	}
	return "", storeerr.Invalid("model", "unknown model %q (want opus, sonnet or haiku)", s)
}

// Field names accepted by Get, Set and Cycle.
const (
	FieldFilter          = "filter"
	FieldModel           = "model"
	FieldContextTurns    = "context_turns"
	FieldSkipPermissions = "skip_permissions"
	FieldTTLHours        = "ttl_hours"
)

// Fields lists the settings in display order.
var Fields = []string{FieldFilter, FieldModel, FieldContextTurns, FieldSkipPermissions, FieldTTLHours}

const (
	MinContextTurns = 0
	MaxContextTurns = 20

	// MaxTTLHours caps ttl_hours at one year.
	MaxTTLHours = 24 * 365

	defaultFilter          = FilterActive
	defaultModel           = ModelSonnet
	defaultContextTurns    = 5
	defaultSkipPermissions = false
	defaultTTLHours        = 72
)

// contextTurnSteps and ttlSteps are the discrete stops used by Cycle;
// Set accepts any in-range value.
var (
	contextTurnSteps = []int{0, 3, 5, 10}
	ttlSteps         = []int{24, 72, 168}
)

// Settings is the persisted singleton configuration.
type Settings struct {
	Filter          Filter `json:"filter" yaml:"filter"`
	Model           Model  `json:"model" yaml:"model"`
	ContextTurns    int    `json:"context_turns" yaml:"context_turns"`
	SkipPermissions bool   `json:"skip_permissions" yaml:"skip_permissions"`
	TTLHours        int    `json:"ttl_hours" yaml:"ttl_hours"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Filter:          defaultFilter,
		Model:           defaultModel,
		ContextTurns:    defaultContextTurns,
		SkipPermissions: defaultSkipPermissions,
		TTLHours:        defaultTTLHours,
	}
}

// Data returns the settings keyed by field name.
func (s Settings) Data() map[string]interface{} {
	return map[string]interface{}{
		FieldFilter:          string(s.Filter),
		FieldModel:           string(s.Model),
		FieldContextTurns:    s.ContextTurns,
		FieldSkipPermissions: s.SkipPermissions,
		FieldTTLHours:        s.TTLHours,
	}
}

// SetData applies decoded values. Every valid key is applied; the invalid
// ones are reported together and leave their field untouched. Unknown
// keys are ignored for forward compatibility.
func (s *Settings) SetData(data map[string]interface{}) error {
	var errs []error
	for key, value := range data {
		var err error
		switch key {
		case FieldFilter, FieldModel:
			str, ok := value.(string)
			if !ok {
				err = fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
				break
			}
			err = s.Set(key, str)
		case FieldContextTurns, FieldTTLHours:
			n, ok := asInt(value)
			if !ok {
				err = fmt.Errorf("invalid value type for %s: expected integer, got %v", key, value)
				break
			}
			err = s.Set(key, strconv.Itoa(n))
		case FieldSkipPermissions:
			b, ok := value.(bool)
			if !ok {
				err = fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
				break
			}
			s.SkipPermissions = b
		default:
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON numbers come as float64
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	if _, err := ParseFilter(string(s.Filter)); err != nil {
		return err
	}
	if _, err := ParseModel(string(s.Model)); err != nil {
		return err
	}
	if s.ContextTurns < MinContextTurns || s.ContextTurns > MaxContextTurns {
		return storeerr.Invalid(FieldContextTurns, "must be between %d and %d, got %d", MinContextTurns, MaxContextTurns, s.ContextTurns)
	}
	if s.TTLHours < 1 || s.TTLHours > MaxTTLHours {
		return storeerr.Invalid(FieldTTLHours, "must be between 1 and %d, got %d", MaxTTLHours, s.TTLHours)
	}
	return nil
}

// Get returns a field's value in its textual form.
func (s Settings) Get(field string) (string, error) {
	switch field {
	case FieldFilter:
		return string(s.Filter), nil
	case FieldModel:
		return string(s.Model), nil
	case FieldContextTurns:
		return strconv.Itoa(s.ContextTurns), nil
	case FieldSkipPermissions:
		return strconv.FormatBool(s.SkipPermissions), nil
	case FieldTTLHours:
		return strconv.Itoa(s.TTLHours), nil
	default:
		return "", unknownField(field)
	}
}

// Set parses value and assigns it to field. On error s is unchanged.
func (s *Settings) Set(field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case FieldFilter:
		f, err := ParseFilter(value)
		if err != nil {
			return err
		}
		s.Filter = f
	case FieldModel:
		m, err := ParseModel(value)
		if err != nil {
			return err
		}
		s.Model = m
	case FieldContextTurns:
		n, err := strconv.Atoi(value)
		if err != nil {
			return storeerr.Invalid(field, "not an integer: %q", value)
		}
		if n < MinContextTurns || n > MaxContextTurns {
			return storeerr.Invalid(field, "must be between %d and %d, got %d", MinContextTurns, MaxContextTurns, n)
		}
		s.ContextTurns = n
	case FieldSkipPermissions:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return storeerr.Invalid(field, "not a boolean: %q", value)
		}
		s.SkipPermissions = b
	case FieldTTLHours:
		n, err := strconv.Atoi(value)
		if err != nil {
			return storeerr.Invalid(field, "not an integer: %q", value)
		}
		if n < 1 || n > MaxTTLHours {
			return storeerr.Invalid(field, "must be between 1 and %d, got %d", MaxTTLHours, n)
		}
		s.TTLHours = n
	default:
		return unknownField(field)
	}
	return nil
}

// Cycle advances field to the next value of its fixed enumeration,
// wrapping around. Integer fields step through their discrete stops; a
// value between stops advances to the next stop above it.
func (s *Settings) Cycle(field string) error {
	switch field {
	case FieldFilter:
		s.Filter = next(Filters, s.Filter)
	case FieldModel:
		s.Model = next(Models, s.Model)
	case FieldContextTurns:
		s.ContextTurns = nextStep(contextTurnSteps, s.ContextTurns)
	case FieldSkipPermissions:
		s.SkipPermissions = !s.SkipPermissions
	case FieldTTLHours:
		s.TTLHours = nextStep(ttlSteps, s.TTLHours)
	default:
		return unknownField(field)
	}
	return nil
}

// next returns the value after cur, or the first value if cur is unknown.
func next[T comparable](values []T, cur T) T {
	for i, v := range values {
		if v == cur {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func nextStep(steps []int, cur int) int {
	for _, v := range steps {
		if v > cur {
			return v
		}
	}
	return steps[0]
}

func unknownField(field string) error {
	return storeerr.Invalid("field", "unknown setting %q (want one of %s)", field, strings.Join(Fields, ", "))
}
