package ginroutes_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/testsupport"
	"github.com/goliatone/go-crudform/pkg/views"
	"github.com/goliatone/go-crudform/pkg/views/ginroutes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, _ := testsupport.Provider(t, testsupport.DefaultSeed())
	renderer, err := render.New()
	require.NoError(t, err)
	view, err := views.New(testsupport.PollType(0),
		views.WithURLPath("/admin/polls"),
		views.WithProvider(db),
		views.WithMetadata(testsupport.Schema()),
		views.WithRenderer(renderer),
		views.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	router := gin.New()
	paths, err := ginroutes.Register(router, view)
	require.NoError(t, err)
	require.Equal(t, []string{"/admin/polls", "/admin/polls/new", "/admin/polls/:pks/edit"}, paths)
	return router
}

func TestRegisterServesEveryView(t *testing.T) {
	router := newRouter(t)

	for path, want := range map[string]string{
		"/admin/polls":        "<h1>Polls</h1>",
		"/admin/polls/new":    "<h1>New Poll</h1>",
		"/admin/polls/1/edit": "<h1>Edit Poll</h1>",
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, path)
		require.Contains(t, w.Body.String(), want, path)
	}
}

func TestEditKeyComesFromPath(t *testing.T) {
	router := newRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/admin/polls/7/edit", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRequiresRouter(t *testing.T) {
	_, err := ginroutes.Register(nil)
	require.Error(t, err)
}
