package model

import (
	"errors"
	"fmt"
	"strings"
)

// Record is one opaque import record as submitted by the caller. The core
// never interprets its shape beyond what the field mapping resolves.
type Record map[string]any

// FieldMapping maps destination field names to JMESPath expressions evaluated
// against each raw record. The "email" entry is mandatory: it is the natural
// key the destination upsert is keyed by.
type FieldMapping map[string]string

// EmailField is the one mapping entry every import must resolve.
const EmailField = "email"

// maxListNameLen bounds list names to keep index keys small.
const maxListNameLen = 128

// EmailExpr returns the JMESPath expression mapped to the email field.
func (m FieldMapping) EmailExpr() string {
	return strings.TrimSpace(m[EmailField])
}

// Validate checks structural validity of the mapping. Expression compilation
// happens in the importer, where the JMESPath evaluator lives.
func (m FieldMapping) Validate() error {
	if len(m) == 0 {
		return errors.New("field mapping is required")
	}
	if m.EmailExpr() == "" {
		return fmt.Errorf("field mapping must resolve an %q column", EmailField)
	}
	for field, expr := range m {
		if strings.TrimSpace(field) == "" {
			return errors.New("field mapping cannot contain empty field names")
		}
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("field mapping for %q cannot be empty", field)
		}
	}
	return nil
}

// CreateImportRequest is the caller's upload: one validated record batch plus
// its field mapping, destined for a single list.
type CreateImportRequest struct {
	ListName     string       `json:"list_name"`
	Records      []Record     `json:"records"`
	FieldMapping FieldMapping `json:"field_mapping"`
}

// Validate validates the CreateImportRequest fields. An empty batch or a
// mapping without a resolvable email column is rejected before any job is
// created.
func (r *CreateImportRequest) Validate() error {
	name := strings.TrimSpace(r.ListName)
	if name == "" {
		return errors.New("list name is required and cannot be empty")
	}
	if len(name) > maxListNameLen {
		return fmt.Errorf("list name cannot exceed %d characters", maxListNameLen)
	}
	if len(r.Records) == 0 {
		return errors.New("records are required and cannot be empty")
	}
	return r.FieldMapping.Validate()
}

// Subscriber is one destination row produced by resolving a record through
// the field mapping.
type Subscriber struct {
	Email string         `json:"email"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ListSummary describes one destination list for the lists endpoint.
type ListSummary struct {
	ListName    string `json:"list_name"`
	Subscribers int64  `json:"subscribers"`
}
