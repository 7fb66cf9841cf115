package views

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/store"
)

// ActionDelete is the built-in bulk delete.
const ActionDelete = "delete"

// Flash messages of the list view.
const (
	MsgSelectAction  = "Please select an action to be executed."
	MsgSelectItems   = "You must select at least one item"
	MsgItemsGone     = "One of the selected items does not exist anymore. It has probably been deleted."
	MsgDeleteFailed  = "There was an error deleting the item(s)"
	confirmDeleteKey = "confirm_delete"
)

// ActionFunc runs a bulk action inside the request transaction. A non-nil
// result is written as the response; otherwise the transaction is committed
// and the client goes back to the list. A returned error rolls back; the
// action is expected to have flashed why.
type ActionFunc func(ctx context.Context, req *ActionRequest) (*ActionResult, error)

// Action is a named bulk action offered on the list page.
type Action struct {
	Name  string
	Label string
	Run   ActionFunc
}

// ActionResult is a page produced by an action instead of a redirect.
type ActionResult struct {
	Body []byte
}

// ActionRequest is what an action gets to work with.
type ActionRequest struct {
	View    *View
	Tx      store.Tx
	Items   []store.Object
	Request *http.Request

	w     http.ResponseWriter
	flash *flashes
}

// Form returns the submitted list form.
func (a *ActionRequest) Form() url.Values { return a.Request.PostForm }

// Flash queues msg for the next page.
func (a *ActionRequest) Flash(queue, msg string) { a.flash.add(queue, msg) }

// Page returns the shared page fields for a page the action renders itself.
func (a *ActionRequest) Page(title string) render.Page {
	return a.View.page(a.w, a.Request, title, a.flash)
}

func buildActions(v *View, custom []Action) ([]Action, error) {
	out := []Action{{Name: ActionDelete, Label: form.Humanize(ActionDelete), Run: v.deleteAction}}
	seen := map[string]bool{ActionDelete: true}
	for _, a := range custom {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, fmt.Errorf("views: %s: action without a name", v.Model())
		}
		if seen[name] {
			return nil, fmt.Errorf("views: %s: duplicate action %q", v.Model(), name)
		}
		if a.Run == nil {
			return nil, fmt.Errorf("views: %s: action %q has no handler", v.Model(), name)
		}
		seen[name] = true
		a.Name = name
		if strings.TrimSpace(a.Label) == "" {
			a.Label = form.Humanize(name)
		}
		out = append(out, a)
	}
	return out, nil
}

// Actions returns the registered actions in display order.
func (v *View) Actions() []Action {
	return append([]Action(nil), v.actions...)
}

func (v *View) action(name string) (Action, bool) {
	for _, a := range v.actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

func (v *View) deleteAction(ctx context.Context, req *ActionRequest) (*ActionResult, error) {
	if _, confirmed := req.Form()[confirmDeleteKey]; !confirmed {
		page := render.DeletePage{
			Page:             req.Page("Delete " + v.typ.TitlePlural()),
			ModelTitle:       v.typ.Title(),
			ModelTitlePlural: v.typ.TitlePlural(),
			Action:           ActionDelete,
		}
		for _, item := range req.Items {
			pk, _ := store.PKOf(item, v.pkAttrs)
			page.Items = append(page.Items, render.DeleteItem{PK: pk.String(), Label: v.display(item)})
		}
		body, err := v.renderer.DeleteConfirm(ctx, page)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Body: body}, nil
	}

	fail := func(err error) (*ActionResult, error) {
		v.logger.Warn("bulk delete failed", "items", len(req.Items), "remote", req.Request.RemoteAddr, "error", err)
		req.Flash(FlashError, MsgDeleteFailed)
		return nil, err
	}
	for _, item := range req.Items {
		if err := req.Tx.Delete(ctx, item); err != nil {
			return fail(err)
		}
	}
	if err := req.Tx.Flush(ctx); err != nil {
		return fail(err)
	}
	title := v.typ.Title()
	if len(req.Items) != 1 {
		title = v.typ.TitlePlural()
	}
	req.Flash(FlashInfo, fmt.Sprintf("%d %s deleted!", len(req.Items), title))
	return nil, nil
}
