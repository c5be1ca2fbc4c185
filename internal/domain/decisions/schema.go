package decisions

import (
	"embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
)

const SchemaPathEnv = "DOMAIN_SCHEMA_PATH"

//go:embed domains.yaml
var schemaFS embed.FS

type FieldType string

const (
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"
)

type FieldSpec struct {
	Type    FieldType `yaml:"type"`
	Min     *float64  `yaml:"min"`
	Max     *float64  `yaml:"max"`
	Aliases []string  `yaml:"aliases"`
}

type DomainSchema struct {
	Label          string               `yaml:"label"`
	Required       []string             `yaml:"required"`
	MinKnownFields int                  `yaml:"min_known_fields"`
	Fields         map[string]FieldSpec `yaml:"fields"`

	aliases map[string]string
}

type yamlSchemaFile struct {
	Version int                      `yaml:"version"`
	Domains map[string]*DomainSchema `yaml:"domains"`
}

// Schemas is the closed set of applicant schemas, one per domain.
type Schemas struct {
	byDomain map[Domain]*DomainSchema
}

var (
	defaultSchemasOnce sync.Once
	defaultSchemas     *Schemas
	defaultSchemasErr  error
)

// DefaultSchemas returns the embedded schemas, or the file named by
// DOMAIN_SCHEMA_PATH when set.
func DefaultSchemas() (*Schemas, error) {
	defaultSchemasOnce.Do(func() {
		defaultSchemas, defaultSchemasErr = LoadSchemas(strings.TrimSpace(os.Getenv(SchemaPathEnv)))
	})
	return defaultSchemas, defaultSchemasErr
}

// LoadSchemas reads schemas from path, or from the embedded file when path
// is empty.
func LoadSchemas(path string) (*Schemas, error) {
	var (
		raw []byte
		err error
	)
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = schemaFS.ReadFile("domains.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read domain schemas: %w", err)
	}
	return ParseSchemas(raw)
}

func ParseSchemas(raw []byte) (*Schemas, error) {
	var file yamlSchemaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse domain schemas: %w", err)
	}
	out := &Schemas{byDomain: map[Domain]*DomainSchema{}}
	for name, ds := range file.Domains {
		d, ok := ParseDomain(name)
		if !ok {
			return nil, fmt.Errorf("domain schemas: unknown domain %q", name)
		}
		if ds == nil {
			ds = &DomainSchema{}
		}
		ds.aliases = map[string]string{}
		for field, spec := range ds.Fields {
			switch spec.Type {
			case FieldNumber, FieldInteger, FieldString, FieldBoolean:
			default:
				return nil, fmt.Errorf("domain schemas: %s.%s has unknown type %q", name, field, spec.Type)
			}
			ds.aliases[normalizeKey(field)] = field
			for _, a := range spec.Aliases {
				ds.aliases[normalizeKey(a)] = field
			}
		}
		for _, req := range ds.Required {
			if _, ok := ds.Fields[req]; !ok {
				return nil, fmt.Errorf("domain schemas: %s requires undeclared field %q", name, req)
			}
		}
		out.byDomain[d] = ds
	}
	for _, d := range Domains() {
		if _, ok := out.byDomain[d]; !ok {
			return nil, fmt.Errorf("domain schemas: missing domain %q", d)
		}
	}
	return out, nil
}

func (s *Schemas) For(d Domain) (*DomainSchema, bool) {
	ds, ok := s.byDomain[d]
	return ds, ok
}

// Validate canonicalizes raw applicant data for domain d: keys are
// normalized and de-aliased, declared fields are coerced to their type, and
// every problem is reported in a single validation error.
func (s *Schemas) Validate(d Domain, raw map[string]any) (map[string]any, error) {
	const op = "decisions.Validate"
	ds, ok := s.For(d)
	if !ok {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "unknown domain "+string(d), ErrValidation)
	}
	if len(raw) == 0 {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, "applicant data is empty", ErrValidation)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(raw))
	var problems []string
	known := 0
	for _, k := range keys {
		key := normalizeKey(k)
		if key == "" {
			problems = append(problems, fmt.Sprintf("empty field name %q", k))
			continue
		}
		v := raw[k]
		canonical, declared := ds.aliases[key]
		if !declared {
			if !isScalar(v) {
				problems = append(problems, fmt.Sprintf("%s: nested values are not supported", key))
				continue
			}
			if _, dup := out[key]; !dup {
				out[key] = v
			}
			continue
		}
		if _, dup := out[canonical]; dup {
			// the canonical spelling wins over an alias
			if key != canonical {
				continue
			}
		}
		coerced, err := coerce(ds.Fields[canonical], v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", canonical, err))
			continue
		}
		if coerced == nil {
			continue
		}
		if _, seen := out[canonical]; !seen {
			known++
		}
		out[canonical] = coerced
	}
	for _, req := range ds.Required {
		if _, ok := out[req]; !ok {
			problems = append(problems, req+": required")
		}
	}
	if ds.MinKnownFields > 0 && known < ds.MinKnownFields && len(problems) == 0 {
		problems = append(problems, fmt.Sprintf("at least %d recognized %s field(s) required", ds.MinKnownFields, d))
	}
	if len(problems) > 0 {
		return nil, aggregates.NewError(aggregates.CodeValidation, op, strings.Join(problems, "; "), ErrValidation)
	}
	return out, nil
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	return k
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int64, int32:
		return true
	default:
		return false
	}
}

// coerce returns nil for blank optional values.
func coerce(spec FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	switch spec.Type {
	case FieldString:
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t), nil
		case bool:
			return strconv.FormatBool(t), nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(t), nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		default:
			return nil, fmt.Errorf("expected text")
		}
	case FieldBoolean:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "y", "1":
				return true, nil
			case "false", "no", "n", "0":
				return false, nil
			}
		case float64:
			return t != 0, nil
		}
		return nil, fmt.Errorf("expected true or false")
	case FieldNumber, FieldInteger:
		n, err := toNumber(v)
		if err != nil {
			return nil, err
		}
		if spec.Type == FieldInteger {
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected a whole number, got %v", n)
			}
		}
		if spec.Min != nil && n < *spec.Min {
			return nil, fmt.Errorf("must be >= %v, got %v", *spec.Min, n)
		}
		if spec.Max != nil && n > *spec.Max {
			return nil, fmt.Errorf("must be <= %v, got %v", *spec.Max, n)
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported field type %q", spec.Type)
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("expected a finite number")
		}
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(strings.TrimPrefix(s, "RM"), "$")
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected a number, got %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number")
	}
}
