package store

import (
	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// Validate checks the structural invariants of a state tree: exactly one
// bucket per known type, non-nil item lists holding records of that type with
// an ID and a name, a named current view and a versioned app.
func Validate(s State) error {
	types := codex.AllDataTypes()
	if len(s.Data) != len(types) {
		return errors.FailedPreconditionf("state has %d buckets, want %d", len(s.Data), len(types))
	}

	for _, t := range types {
		b, ok := s.Data[t]
		if !ok {
			return errors.FailedPreconditionf("bucket %s is missing", t).
				WithMeta("type", string(t))
		}
		if b.Items == nil {
			return errors.FailedPreconditionf("bucket %s has no item list", t).
				WithMeta("type", string(t))
		}
		for i := range b.Items {
			rec := &b.Items[i]
			if rec.Name == "" {
				return errors.FailedPreconditionf("bucket %s record %d has no name", t, i).
					WithMeta("type", string(t))
			}
			if err := validateEntity(rec, t, i); err != nil {
				return err
			}
		}
	}

	if s.UI.CurrentView == "" {
		return errors.FailedPrecondition("current view is empty")
	}
	if s.App.Version == "" {
		return errors.FailedPrecondition("app version is empty")
	}

	return nil
}

// validateEntity checks the identity every bucket entry carries
func validateEntity(e core.Entity, t codex.DataType, i int) error {
	if e.GetID() == "" {
		return errors.FailedPreconditionf("bucket %s record %d has no id", t, i).
			WithMeta("type", string(t))
	}
	if e.GetType() != string(t) {
		return errors.FailedPreconditionf("bucket %s holds record %s of type %q", t, e.GetID(), e.GetType()).
			WithMeta("type", string(t))
	}
	return nil
}
