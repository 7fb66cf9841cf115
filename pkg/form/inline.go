package form

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-crudform/pkg/store"
)

// Entry is one reconciled inline row.
type Entry struct {
	Form *Form
	// Index is the dense position after renumbering.
	Index int
	// SubmittedIndex is the index the row's data was read from.
	SubmittedIndex int
	// IsExtra marks rows not backed by a persisted object.
	IsExtra bool
	Object  store.Object
}

// InlineSet is the reconciliation result of one inline.
type InlineSet struct {
	Inline       *Inline
	Relationship string
	Entries      []*Entry
	// Deleted counts persisted rows removed by delete signals.
	Deleted int
}

// Count is the value rendered into the inline's count control.
func (s *InlineSet) Count() int { return len(s.Entries) }

// Existing counts entries backed by persisted objects.
func (s *InlineSet) Existing() int {
	n := 0
	for _, e := range s.Entries {
		if !e.IsExtra {
			n++
		}
	}
	return n
}

func (f *Form) reconcile(ctx context.Context, inline *Inline) (*InlineSet, error) {
	name := inline.name
	submitted := f.data != nil

	var rows map[int]url.Values
	var childKeys []string
	if submitted {
		itemCount, _ := parseCount(f.data, name)
		if itemCount < 0 {
			itemCount = 0
		}
		if itemCount > f.maxRows {
			itemCount = f.maxRows
		}
		rows = collectRows(f.data, name, inline.FieldNames(), itemCount)
	}

	rel, err := ResolveRelationship(f.meta, f.typ.model, inline)
	if err != nil {
		return nil, err
	}
	set := &InlineSet{Inline: inline, Relationship: rel}

	if submitted {
		if f.meta == nil {
			return nil, fmt.Errorf("form: schema metadata is required to read %s rows", name)
		}
		if childKeys, err = f.meta.PrimaryKeys(inline.child.model); err != nil {
			return nil, err
		}
	}

	maxIndex := 0
	if f.obj != nil {
		if f.session == nil {
			return nil, fmt.Errorf("%w: loading %s.%s", ErrNoSession, f.typ.model, rel)
		}
		children, err := f.session.Related(ctx, f.obj, rel)
		if err != nil {
			return nil, err
		}
		for index, child := range children {
			if submitted && has(f.data, DeleteKey(name, index)) {
				if err := f.deleteChild(ctx, inline, index, child, childKeys); err != nil {
					return nil, err
				}
				set.Deleted++
				continue
			}
			set.Entries = append(set.Entries, &Entry{
				Form:           f.newSubForm(inline.child, rows[index], child),
				SubmittedIndex: index,
				Object:         child,
			})
		}
		maxIndex = len(children)
	}

	extra := 0
	count, hasCount := 0, false
	if submitted {
		count, hasCount = parseCount(f.data, name)
	}
	switch {
	case hasCount:
		extra = count - maxIndex
	case f.obj == nil:
		extra = inline.extra
	}
	if submitted && has(f.data, AddKey(name)) {
		extra++
	}
	if limit := f.maxRows - maxIndex; extra > limit {
		extra = limit
	}

	for index := maxIndex; index < maxIndex+extra; index++ {
		if submitted && has(f.data, DeleteKey(name, index)) {
			continue
		}
		set.Entries = append(set.Entries, &Entry{
			Form:           f.newSubForm(inline.child, rows[index], nil),
			SubmittedIndex: index,
			IsExtra:        true,
		})
	}

	for i, entry := range set.Entries {
		entry.Index = i
		entry.Form.setPosition(name, i)
	}

	f.logger.Debug("inline reconciled",
		"model", f.typ.model,
		"inline", name,
		"relationship", rel,
		"existing", maxIndex,
		"extra", extra,
		"deleted", set.Deleted,
		"entries", len(set.Entries),
	)
	return set, nil
}

func (f *Form) deleteChild(ctx context.Context, inline *Inline, index int, child store.Object, childKeys []string) error {
	if pk, ok := extractPK(f.data, inline.name, index, childKeys); ok {
		current, ok := store.PKOf(child, childKeys)
		if !ok {
			return fmt.Errorf("%w: %s row %d holds a %s without values for %v",
				ErrMissingKey, inline.name, index, inline.child.model, childKeys)
		}
		if !pk.Equal(current) {
			return fmt.Errorf("%w: %s row %d submitted key %s but holds %s",
				ErrInconsistentEntry, inline.name, index, pk, current)
		}
	}
	if err := f.session.Delete(ctx, child); err != nil {
		return err
	}
	if err := f.session.Expire(ctx, f.obj); err != nil {
		return err
	}
	f.logger.Debug("inline row deleted", "model", inline.child.model, "inline", inline.name, "index", index)
	return nil
}

// collectRows groups submitted values by row index for indexes 0..itemCount.
// The upper bound is inclusive so a row added client side is not lost.
func collectRows(data url.Values, inline string, fields []string, itemCount int) map[int]url.Values {
	rows := make(map[int]url.Values)
	for index := 0; index <= itemCount; index++ {
		values := url.Values{}
		for _, field := range fields {
			if v, ok := data[FieldName(inline, index, field)]; ok {
				values[field] = append([]string(nil), v...)
			}
		}
		if len(values) > 0 {
			rows[index] = values
		}
	}
	return rows
}

// extractPK reads the primary key of row index. Any missing or empty part
// means the row has no key; partial keys are never returned.
func extractPK(data url.Values, inline string, index int, keys []string) (store.PK, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	pk := make(store.PK, 0, len(keys))
	for _, key := range keys {
		raw := strings.TrimSpace(data.Get(FieldName(inline, index, key)))
		if raw == "" {
			return nil, false
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		pk = append(pk, v)
	}
	return pk, true
}

// ExtractPK exposes the primary key rule used by reconciliation.
func ExtractPK(data url.Values, inline string, index int, keys []string) (store.PK, bool) {
	return extractPK(data, inline, index, keys)
}

func parseCount(data url.Values, inline string) (int, bool) {
	values, ok := data[CountKey(inline)]
	if !ok || len(values) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, false
	}
	return n, true
}

func has(data url.Values, key string) bool {
	_, ok := data[key]
	return ok
}
