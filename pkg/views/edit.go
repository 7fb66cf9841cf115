package views

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/store"
)

// Submit buttons of the edit page.
const (
	SubmitSave      = "save"
	SubmitSaveClose = "save_close"
	SubmitSaveNew   = "save_new"
)

// MsgInvalidURL is flashed when an edit URL carries a malformed key.
const MsgInvalidURL = "Invalid URL"

var errCSRF = errors.New("views: invalid csrf token")

// ServeNew renders and processes the creation form.
func (v *View) ServeNew(w http.ResponseWriter, r *http.Request) {
	if !v.acceptEdit(w, r, RouteNew) {
		return
	}
	v.serveForm(w, r, RouteNew, nil)
}

// ServeEdit renders and processes the edit form of the object whose key is
// rawPK, in store.PK string form. Keys must name every primary key
// attribute.
func (v *View) ServeEdit(w http.ResponseWriter, r *http.Request, rawPK string) {
	if !v.acceptEdit(w, r, RouteEdit) {
		return
	}
	pk, err := store.ParsePK(rawPK)
	if err != nil || len(pk) != len(v.pkAttrs) {
		v.logger.Info("edit url rejected", "pk", rawPK, "remote", r.RemoteAddr)
		fl := loadFlashes(r)
		fl.add(FlashError, MsgInvalidURL)
		v.redirect(w, r, RouteEdit, v.ListURL(), fl)
		return
	}
	v.serveForm(w, r, RouteEdit, pk)
}

func (v *View) acceptEdit(w http.ResponseWriter, r *http.Request, view string) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		methodNotAllowed(w)
		return false
	}
	return v.allow(w, r, view)
}

func (v *View) serveForm(w http.ResponseWriter, r *http.Request, view string, pk store.PK) {
	ctx := r.Context()
	fl := loadFlashes(r)

	tx, err := v.provider.Begin(ctx)
	if err != nil {
		v.fail(w, r, view, nil, err)
		return
	}

	var obj store.Object
	if pk != nil {
		obj, err = tx.Get(ctx, v.Model(), pk)
		if err != nil {
			v.fail(w, r, view, tx, err)
			return
		}
	}

	var data url.Values
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			v.fail(w, r, view, tx, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		if !validCSRF(r) {
			v.logger.Warn("edit form rejected: invalid csrf token", "remote", r.RemoteAddr)
			v.fail(w, r, view, tx, StatusError{Code: http.StatusForbidden, Err: errCSRF})
			return
		}
		data = r.PostForm
	}

	opts := []form.Option{
		form.WithSchema(v.meta),
		form.WithSession(tx),
		form.WithLogger(v.logger),
		form.WithMaxRows(v.maxRows),
		form.WithData(data),
	}
	if obj != nil {
		opts = append(opts, form.WithObject(obj))
	}
	f, err := form.New(ctx, v.typ, opts...)
	if err != nil {
		v.fail(w, r, view, tx, err)
		return
	}
	v.metrics.inlines(v.Model(), f.Inlines())

	if data == nil {
		_ = tx.Rollback(ctx)
		v.renderForm(w, r, view, f, fl, OutcomeRendered)
		return
	}

	submit := submitButton(data)
	if submit == "" {
		if !hasInlineControl(data, f) {
			v.fail(w, r, view, tx, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("views: %s: no save action submitted", v.Model())})
			return
		}
		// Add/delete round trip: keep the deletions and show the form again.
		if err := tx.Commit(ctx); err != nil {
			v.fail(w, r, view, nil, err)
			return
		}
		v.renderForm(w, r, view, f, fl, OutcomeRendered)
		return
	}

	if !f.Validate() {
		if err := tx.Commit(ctx); err != nil {
			v.fail(w, r, view, nil, err)
			return
		}
		v.renderForm(w, r, view, f, fl, OutcomeInvalid)
		return
	}

	target := obj
	if target == nil {
		target = v.typ.New()
		if err := tx.Add(ctx, target); err != nil {
			v.fail(w, r, view, tx, err)
			return
		}
	}
	if err := f.Populate(ctx, target); err != nil {
		v.fail(w, r, view, tx, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		v.fail(w, r, view, nil, err)
		return
	}
	if obj == nil {
		fl.add(FlashInfo, fmt.Sprintf("%s added!", v.typ.Title()))
	} else {
		fl.add(FlashInfo, fmt.Sprintf("%s edited!", v.typ.Title()))
	}

	next := v.ListURL()
	switch submit {
	case SubmitSave:
		if saved, ok := store.PKOf(target, v.pkAttrs); ok {
			next = v.EditURL(saved)
		}
	case SubmitSaveNew:
		next = v.NewURL()
	}
	v.redirect(w, r, view, next, fl)
}

func (v *View) renderForm(w http.ResponseWriter, r *http.Request, view string, f *form.Form, fl *flashes, outcome string) {
	title := "Edit " + v.typ.Title()
	action := r.URL.Path
	if f.IsNew() {
		title = "New " + v.typ.Title()
		action = v.NewURL()
	}
	formView := render.NewFormView(f, render.WithWidgets(v.widgets))
	formView.Errors = render.MapErrors(formView, f.Errors()).Form

	body, err := v.renderer.Edit(r.Context(), render.EditPage{
		Page:       v.page(w, r, title, fl),
		ModelTitle: v.typ.Title(),
		IsNew:      f.IsNew(),
		ActionURL:  action,
		Form:       formView,
	})
	if err != nil {
		v.fail(w, r, view, nil, err)
		return
	}
	v.write(w, r, view, outcome, body)
}

func submitButton(data url.Values) string {
	for _, name := range []string{SubmitSave, SubmitSaveClose, SubmitSaveNew} {
		if _, ok := data[name]; ok {
			return name
		}
	}
	return ""
}

// hasInlineControl reports whether data carries an add or delete signal of
// one of f's inlines.
func hasInlineControl(data url.Values, f *form.Form) bool {
	for _, set := range f.Inlines() {
		name := set.Inline.Name()
		if _, ok := data[form.AddKey(name)]; ok {
			return true
		}
		prefix := form.DeleteKey(name, 0)
		prefix = strings.TrimSuffix(prefix, "0")
		for key := range data {
			if strings.HasPrefix(key, prefix) {
				return true
			}
		}
	}
	return false
}
