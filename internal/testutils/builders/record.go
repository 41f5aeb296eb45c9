// Package builders provides test data builders for creating test fixtures
package builders

import (
	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
)

// RecordBuilder provides a fluent interface for building test Record instances
type RecordBuilder struct {
	record codex.Record
}

// NewRecordBuilder creates a new builder with minimal defaults
func NewRecordBuilder(t codex.DataType) *RecordBuilder {
	return &RecordBuilder{
		record: codex.Record{
			ID:   "test-" + t.Singular(),
			Slug: "test-" + t.Singular(),
			Name: "Test " + t.Singular(),
			Type: t,
		},
	}
}

// WithName sets the name and derives the ID and slug from it
func (b *RecordBuilder) WithName(name string) *RecordBuilder {
	b.record.Name = name
	b.record.ID = codex.Slugify(name)
	b.record.Slug = b.record.ID
	return b
}

// WithTier sets the tier
func (b *RecordBuilder) WithTier(tier string) *RecordBuilder {
	b.record.Tier = tier
	return b
}

// WithCategory sets the category
func (b *RecordBuilder) WithCategory(category string) *RecordBuilder {
	b.record.Category = category
	return b
}

// WithAttribute sets one attribute
func (b *RecordBuilder) WithAttribute(key string, value any) *RecordBuilder {
	if b.record.Attributes == nil {
		b.record.Attributes = make(map[string]any)
	}
	b.record.Attributes[key] = value
	return b
}

// AsFallback marks the record as bundled sample data
func (b *RecordBuilder) AsFallback() *RecordBuilder {
	b.record.IsFallback = true
	return b
}

// Build returns the built record
func (b *RecordBuilder) Build() codex.Record {
	r := b.record
	if b.record.Attributes != nil {
		r.Attributes = make(map[string]any, len(b.record.Attributes))
		for k, v := range b.record.Attributes {
			r.Attributes[k] = v
		}
	}
	return r
}
