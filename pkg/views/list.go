package views

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/store"
)

const displayColumn = "__display"

// ServeList renders the list on GET and runs a bulk action on POST.
func (v *View) ServeList(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		methodNotAllowed(w)
		return
	}
	if !v.allow(w, r, RouteList) {
		return
	}
	ctx := r.Context()
	fl := loadFlashes(r)

	tx, err := v.provider.Begin(ctx)
	if err != nil {
		v.fail(w, r, RouteList, nil, err)
		return
	}

	selected := ""
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			v.fail(w, r, RouteList, tx, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}
		selected = r.PostForm.Get("action")
		done, err := v.runAction(w, r, tx, fl)
		if err != nil {
			v.fail(w, r, RouteList, tx, err)
			return
		}
		if done {
			return
		}
	}

	page, err := v.listPage(w, r, tx, fl, selected)
	if err != nil {
		v.fail(w, r, RouteList, tx, err)
		return
	}
	// Listing only reads.
	_ = tx.Rollback(ctx)

	body, err := v.renderer.List(ctx, page)
	if err != nil {
		v.fail(w, r, RouteList, nil, err)
		return
	}
	v.write(w, r, RouteList, OutcomeRendered, body)
}

// runAction validates the bulk form and runs the selected action. It
// reports true once a response was written. Validation problems are queued
// on fl and leave the list to be redisplayed.
func (v *View) runAction(w http.ResponseWriter, r *http.Request, tx store.Tx, fl *flashes) (bool, error) {
	ctx := r.Context()
	if !validCSRF(r) {
		v.logger.Warn("list form rejected: invalid csrf token", "remote", r.RemoteAddr)
		return false, nil
	}

	rawItems := r.PostForm["items"]
	action, known := v.action(r.PostForm.Get("action"))
	valid := true
	if len(rawItems) == 0 {
		fl.add(FlashError, MsgSelectItems)
		valid = false
	}
	if !known {
		fl.add(FlashError, MsgSelectAction)
		valid = false
	}
	if !valid {
		return false, nil
	}
	if len(v.pkAttrs) != 1 {
		return false, fmt.Errorf("views: %s: bulk actions need a single column primary key", v.Model())
	}

	items := make([]store.Object, 0, len(rawItems))
	for _, raw := range rawItems {
		pk, err := store.ParsePK(raw)
		if err != nil || len(pk) != 1 {
			fl.add(FlashError, MsgItemsGone)
			return false, nil
		}
		obj, err := tx.Get(ctx, v.Model(), pk)
		if errors.Is(err, store.ErrNotFound) {
			fl.add(FlashError, MsgItemsGone)
			return false, nil
		}
		if err != nil {
			return false, err
		}
		items = append(items, obj)
	}

	req := &ActionRequest{View: v, Tx: tx, Items: items, Request: r, w: w, flash: fl}
	result, err := action.Run(ctx, req)
	if err != nil {
		_ = tx.Rollback(ctx)
		v.redirect(w, r, RouteList, v.ListURL(), fl)
		return true, nil
	}
	if result != nil {
		_ = tx.Rollback(ctx)
		v.write(w, r, RouteList, OutcomeRendered, result.Body)
		return true, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	v.redirect(w, r, RouteList, v.ListURL(), fl)
	return true, nil
}

func (v *View) listPage(w http.ResponseWriter, r *http.Request, tx store.Tx, fl *flashes, selected string) (render.ListPage, error) {
	objects, err := tx.All(r.Context(), v.Model())
	if err != nil {
		return render.ListPage{}, err
	}
	page := render.ListPage{
		Page:             v.page(w, r, v.typ.TitlePlural(), fl),
		ModelTitle:       v.typ.Title(),
		ModelTitlePlural: v.typ.TitlePlural(),
		Columns:          v.columns(),
		SelectedAction:   selected,
	}
	for _, a := range v.actions {
		page.Actions = append(page.Actions, render.ActionOption{Name: a.Name, Label: a.Label})
	}
	for _, obj := range objects {
		pk, ok := store.PKOf(obj, v.pkAttrs)
		if !ok {
			continue
		}
		row := render.Row{PK: pk.String(), EditURL: v.EditURL(pk)}
		for _, col := range page.Columns {
			row.Cells = append(row.Cells, v.cell(obj, col))
		}
		page.Rows = append(page.Rows, row)
	}
	return page, nil
}

func (v *View) columns() []render.Column {
	if len(v.listDisplay) == 0 {
		return []render.Column{{Name: displayColumn, Label: v.typ.Title(), CSSClass: "column-" + strings.ToLower(v.typ.Model())}}
	}
	cols := make([]render.Column, 0, len(v.listDisplay))
	for _, name := range v.listDisplay {
		col := render.Column{
			Name:     name,
			Label:    form.Humanize(name),
			CSSClass: "column-" + name,
			HTML:     v.htmlColumns[name],
		}
		if field, ok := v.typ.Field(name); ok {
			col.Label = field.DisplayLabel()
			col.Boolean = field.ResolvedKind() == form.KindBoolean
		}
		cols = append(cols, col)
	}
	return cols
}

func (v *View) cell(obj store.Object, col render.Column) render.Cell {
	if col.Name == displayColumn {
		return render.Cell{Value: v.display(obj), CSSClass: col.CSSClass}
	}
	raw, _ := obj.Attr(col.Name)
	if col.Boolean {
		checked, _ := raw.(bool)
		return render.Cell{CSSClass: col.CSSClass, Boolean: true, Checked: checked}
	}
	value := cellValue(raw)
	if col.HTML {
		return render.HTMLCell(value, col.CSSClass)
	}
	return render.Cell{Value: value, CSSClass: col.CSSClass}
}

func cellValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(form.DateTimeLayout)
	case float64:
		if n := int64(v); float64(n) == v {
			return fmt.Sprint(n)
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
