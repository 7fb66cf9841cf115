package form

import (
	"net/url"

	"github.com/goliatone/go-crudform/pkg/store"
)

// newSubForm binds one inline row. Submitted values win per field, the
// backing object fills the rest. Inline rows never reconcile inlines of
// their own.
func (f *Form) newSubForm(child *Type, prefill url.Values, obj store.Object) *Form {
	sub := &Form{
		typ:     child,
		data:    prefill,
		obj:     obj,
		session: f.session,
		meta:    f.meta,
		logger:  f.logger,
		maxRows: f.maxRows,
	}
	sub.bind()
	return sub
}

// setPosition moves an inline row to index, renaming every field.
func (f *Form) setPosition(inline string, index int) {
	f.inline = inline
	f.index = index
	f.rename()
}
