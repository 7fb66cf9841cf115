// Package ginroutes mounts admin views on a gin router.
package ginroutes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-crudform/pkg/views"
)

var methods = []string{http.MethodGet, http.MethodHead, http.MethodPost}

// Register mounts the list, new and edit routes of every view on r and
// returns the registered gin paths.
func Register(r gin.IRoutes, vs ...*views.View) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("ginroutes: missing router")
	}
	var paths []string
	for _, v := range vs {
		if v == nil {
			continue
		}
		list := v.ListURL()
		edit := list + "/:pks/edit"
		r.Match(methods, list, gin.WrapF(v.ServeList))
		r.Match(methods, v.NewURL(), gin.WrapF(v.ServeNew))
		r.Match(methods, edit, func(c *gin.Context) {
			v.ServeEdit(c.Writer, c.Request, c.Param("pks"))
		})
		paths = append(paths, list, v.NewURL(), edit)
	}
	return paths, nil
}
