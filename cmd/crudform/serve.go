package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform"
	"github.com/goliatone/go-crudform/pkg/render"
	"github.com/goliatone/go-crudform/pkg/views/ginroutes"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin pages, static assets and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := a.load(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			admin, err := e.admin(crudform.WithRegisterer(reg))
			if err != nil {
				return err
			}
			router, err := newRouter(admin, reg)
			if err != nil {
				return err
			}

			srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				e.logger.Info("admin listening", "addr", addr, "models", admin.Models())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			e.logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// newRouter mounts every view, the static assets and the metrics endpoint.
func newRouter(admin *crudform.Admin, gatherer prometheus.Gatherer) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	if _, err := ginroutes.Register(router, admin.Views()...); err != nil {
		return nil, err
	}
	if prefix := admin.Config().StaticURL(); prefix != "" {
		router.StaticFS(prefix, http.FS(render.StaticFS()))
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return router, nil
}
