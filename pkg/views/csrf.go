package views

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"github.com/goliatone/go-crudform/pkg/render"
)

// CSRFCookieName holds the double submit token.
const CSRFCookieName = "crudform_csrf"

// csrfToken returns the token bound to the client, issuing a new one when
// the request carries none.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CSRFCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Later reads within this request see the issued token.
	r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	return token
}

// validCSRF compares the submitted token with the cookie. r.ParseForm must
// have run.
func validCSRF(r *http.Request) bool {
	c, err := r.Cookie(CSRFCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	submitted := r.PostForm.Get(render.CSRFFieldName)
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(submitted)) == 1
}
