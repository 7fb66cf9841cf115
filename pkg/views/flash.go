package views

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-crudform/pkg/render"
)

// FlashCookieName carries queued messages across a redirect.
const FlashCookieName = "crudform_flash"

// Flash queues.
const (
	FlashInfo  = "info"
	FlashError = "error"
)

// flashes is the message queue of one request: what arrived in the cookie
// plus what the handler added.
type flashes struct {
	msgs []render.Flash
}

func loadFlashes(r *http.Request) *flashes {
	f := &flashes{}
	c, err := r.Cookie(FlashCookieName)
	if err != nil || c.Value == "" {
		return f
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return f
	}
	_ = json.Unmarshal(raw, &f.msgs)
	return f
}

func (f *flashes) add(queue, msg string) {
	f.msgs = append(f.msgs, render.Flash{Queue: queue, Message: msg})
}

// keep stores the queue for the next request.
func (f *flashes) keep(w http.ResponseWriter) {
	if len(f.msgs) == 0 {
		return
	}
	raw, err := json.Marshal(f.msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// drain returns every message and clears the cookie if one was sent.
func (f *flashes) drain(w http.ResponseWriter, r *http.Request) []render.Flash {
	if _, err := r.Cookie(FlashCookieName); err == nil {
		http.SetCookie(w, &http.Cookie{Name: FlashCookieName, Value: "", Path: "/", MaxAge: -1})
	}
	out := f.msgs
	f.msgs = nil
	return out
}
