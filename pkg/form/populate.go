package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-crudform/pkg/store"
)

// Populate writes the form onto obj and applies every inline entry. Rows
// with a submitted primary key are loaded from the session; the rest are
// created and appended to obj's relationship. Populate never flushes.
func (f *Form) Populate(ctx context.Context, obj store.Object) error {
	if obj == nil {
		return fmt.Errorf("form: cannot populate a nil object")
	}
	var ownKeys []string
	if f.meta != nil {
		keys, err := f.meta.PrimaryKeys(f.typ.model)
		if err != nil {
			return err
		}
		ownKeys = keys
	}
	f.populateFields(obj, ownKeys)

	for _, set := range f.inlines {
		if len(set.Entries) == 0 {
			continue
		}
		if f.session == nil {
			return fmt.Errorf("%w: populating %s", ErrNoSession, set.Inline.name)
		}
		if f.meta == nil {
			return fmt.Errorf("form: schema metadata is required to populate %s", set.Inline.name)
		}
		childModel := set.Inline.child.model
		childKeys, err := f.meta.PrimaryKeys(childModel)
		if err != nil {
			return err
		}
		for _, entry := range set.Entries {
			child, err := f.resolveChild(ctx, obj, set, entry, childKeys)
			if err != nil {
				return err
			}
			entry.Form.populateFields(child, childKeys)
			entry.Object = child
		}
	}
	return nil
}

func (f *Form) resolveChild(ctx context.Context, parent store.Object, set *InlineSet, entry *Entry, childKeys []string) (store.Object, error) {
	name := set.Inline.name
	childModel := set.Inline.child.model

	pk, ok := extractPK(f.data, name, entry.SubmittedIndex, childKeys)
	if !ok {
		if !entry.IsExtra {
			return nil, fmt.Errorf("%w: %s row %d is persisted but no key was submitted", ErrInconsistentEntry, name, entry.Index)
		}
		child := set.Inline.child.New()
		if err := f.session.Append(ctx, parent, set.Relationship, child); err != nil {
			return nil, err
		}
		return child, nil
	}

	child, err := f.session.Get(ctx, childModel, pk)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s with key %s", ErrChildNotFound, childModel, pk)
		}
		return nil, err
	}
	if entry.IsExtra || (entry.Object != nil && entry.Object != child) {
		return nil, fmt.Errorf("%w: %s row %d submitted key %s", ErrInconsistentEntry, name, entry.Index, pk)
	}
	return child, nil
}
