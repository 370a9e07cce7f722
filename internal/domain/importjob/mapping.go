package importjob

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/lettermill/import-api/internal/domain/model"
)

// Resolver projects raw records into destination subscribers using the
// caller's field mapping. Each mapping value is a JMESPath expression
// evaluated against the record, which lets mappings reach nested structures
// ("address.city") as well as plain CSV column names.
type Resolver struct {
	email  jmespath.JMESPath
	fields map[string]jmespath.JMESPath
}

// NewResolver compiles a field mapping. A mapping whose email expression is
// missing or fails to compile is rejected here, before any job is created.
func NewResolver(mapping model.FieldMapping) (*Resolver, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	email, err := jmespath.Compile(mapping.EmailExpr())
	if err != nil {
		return nil, fmt.Errorf("compile email mapping %q: %w", mapping.EmailExpr(), err)
	}

	fields := make(map[string]jmespath.JMESPath, len(mapping))
	for field, expr := range mapping {
		if field == model.EmailField {
			continue
		}
		compiled, cerr := jmespath.Compile(strings.TrimSpace(expr))
		if cerr != nil {
			return nil, fmt.Errorf("compile mapping for %q: %w", field, cerr)
		}
		fields[field] = compiled
	}

	return &Resolver{email: email, fields: fields}, nil
}

// Resolve projects one record. The boolean reports whether the record yielded
// a usable email; records without one are skipped, not errored, matching the
// partial-success contract of chunk execution.
func (r *Resolver) Resolve(rec model.Record) (model.Subscriber, bool) {
	raw, err := r.email.Search(map[string]any(rec))
	if err != nil {
		return model.Subscriber{}, false
	}

	email, ok := normalizeEmail(raw)
	if !ok {
		return model.Subscriber{}, false
	}

	sub := model.Subscriber{Email: email}
	if len(r.fields) > 0 {
		sub.Attrs = make(map[string]any, len(r.fields))
		for field, expr := range r.fields {
			v, ferr := expr.Search(map[string]any(rec))
			if ferr != nil || v == nil {
				continue
			}
			sub.Attrs[field] = v
		}
	}
	return sub, true
}

// normalizeEmail lower-cases and trims a resolved email value, rejecting
// non-strings and values without an "@".
func normalizeEmail(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || !strings.Contains(s, "@") {
		return "", false
	}
	return s, true
}
