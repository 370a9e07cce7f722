package importjob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/import-api/internal/domain/model"
)

func TestNewResolverRejectsMissingEmail(t *testing.T) {
	_, err := NewResolver(model.FieldMapping{"first_name": "FirstName"})
	assert.Error(t, err)

	_, err = NewResolver(model.FieldMapping{})
	assert.Error(t, err)
}

func TestNewResolverRejectsBadExpression(t *testing.T) {
	_, err := NewResolver(model.FieldMapping{"email": "][bogus"})
	assert.Error(t, err)
}

func TestResolverResolvesColumns(t *testing.T) {
	r, err := NewResolver(model.FieldMapping{
		"email":      `"Email Address"`,
		"first_name": `"First Name"`,
	})
	require.NoError(t, err)

	sub, ok := r.Resolve(model.Record{
		"Email Address": "Jane.Doe@Example.COM",
		"First Name":    "Jane",
	})
	require.True(t, ok)
	assert.Equal(t, "jane.doe@example.com", sub.Email, "emails are normalised")
	assert.Equal(t, "Jane", sub.Attrs["first_name"])
}

func TestResolverResolvesNestedExpressions(t *testing.T) {
	r, err := NewResolver(model.FieldMapping{
		"email": "contact.email",
		"city":  "contact.address.city",
	})
	require.NoError(t, err)

	sub, ok := r.Resolve(model.Record{
		"contact": map[string]any{
			"email":   "nested@example.com",
			"address": map[string]any{"city": "Lisbon"},
		},
	})
	require.True(t, ok)
	assert.Equal(t, "nested@example.com", sub.Email)
	assert.Equal(t, "Lisbon", sub.Attrs["city"])
}

func TestResolverSkipsRecordsWithoutEmail(t *testing.T) {
	r, err := NewResolver(model.FieldMapping{"email": "email"})
	require.NoError(t, err)

	cases := []model.Record{
		{},                       // missing
		{"email": ""},            // empty
		{"email": "   "},         // whitespace
		{"email": "not-an-addr"}, // no @
		{"email": 42},            // wrong type
	}
	for _, rec := range cases {
		_, ok := r.Resolve(rec)
		assert.False(t, ok, "record %v must be skipped", rec)
	}
}

func TestResolverOmitsUnresolvedAttrs(t *testing.T) {
	r, err := NewResolver(model.FieldMapping{
		"email": "email",
		"plan":  "plan",
	})
	require.NoError(t, err)

	sub, ok := r.Resolve(model.Record{"email": "a@b.co"})
	require.True(t, ok)
	_, present := sub.Attrs["plan"]
	assert.False(t, present)
}
