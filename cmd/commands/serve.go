package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/docmapper/config"
	"github.com/ncobase/docmapper/ctxutil"
	"github.com/ncobase/docmapper/data"
	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/ecode"
	"github.com/ncobase/docmapper/logging/logger"
	"github.com/ncobase/docmapper/net/resp"
	"github.com/ncobase/docmapper/paging"
	"github.com/ncobase/docmapper/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve collection pages over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := setup(ctx, *configFile)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.cfg.RunMode == "release" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{
				Addr:              a.cfg.Addr(),
				Handler:           newRouter(a.cfg, a.data),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Infof(ctx, "listening on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info(context.Background(), "shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// newRouter registers the HTTP routes.
func newRouter(cfg *config.Config, d *data.Data) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), ctxutil.TraceMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		health := d.Health(c.Request.Context())
		if health["status"] != "healthy" {
			reject(c, ecode.ServiceUnavailable, ecode.Unavailable("store"), health)
			return
		}
		resp.Success(c.Writer, health)
	})
	r.GET("/stats", func(c *gin.Context) {
		resp.Success(c.Writer, d.GetStats())
	})
	if m := cfg.Data.Metrics; m != nil && m.Enabled {
		r.GET(m.Path, gin.WrapH(promhttp.Handler()))
	}

	h := &collectionHandler{cfg: cfg, data: d}
	r.GET("/collections/:name", h.page)
	r.GET("/collections/:name/:id", h.get)
	return r
}

type collectionHandler struct {
	cfg  *config.Config
	data *data.Data
}

type pageQuery struct {
	paging.Params
	Filter     string `form:"filter"`
	Sort       string `form:"sort"`
	Projection string `form:"projection"`
}

// page serves GET /collections/:name?after=&before=&limit=&sort=&filter=
func (h *collectionHandler) page(c *gin.Context) {
	ctx := c.Request.Context()

	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		reject(c, ecode.ParamErr, ecode.FieldIsInvalid("query"), err.Error())
		return
	}
	filter, err := mongodb.ParseFilter(q.Filter)
	if err != nil {
		reject(c, ecode.ParamErr, ecode.FieldIsInvalid("filter"), err.Error())
		return
	}
	var projection bson.M
	if q.Projection != "" {
		if projection, err = mongodb.ParseFilter(q.Projection); err != nil {
			reject(c, ecode.ParamErr, ecode.FieldIsInvalid("projection"), err.Error())
			return
		}
	}
	var sort types.Sort
	if q.Sort != "" {
		if sort, err = types.ParseSort(q.Sort); err != nil {
			fail(c, err)
			return
		}
	}

	repo, err := documents(h.data, h.cfg, c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	res, err := repo.Page(ctx, filter, q.Params, sort, projection)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Success(c.Writer, res)
}

// get serves GET /collections/:name/:id
func (h *collectionHandler) get(c *gin.Context) {
	repo, err := documents(h.data, h.cfg, c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	doc, err := repo.FindOneByID(c.Request.Context(), mongodb.ParseID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	if doc == nil {
		reject(c, ecode.NotFound, ecode.NotExist("document"), nil)
		return
	}
	resp.Success(c.Writer, doc)
}

// fail maps store errors to business codes.
func fail(c *gin.Context, err error) {
	code, msg := ecode.StoreErr, ""
	switch {
	case errors.Is(err, paging.ErrInvalidCursor):
		code, msg = ecode.InvalidCursor, ecode.FieldIsInvalid("cursor")
	case errors.Is(err, types.ErrInvalidSort):
		code, msg = ecode.InvalidSort, ecode.FieldIsInvalid("sort")
	case errors.Is(err, mongodb.ErrInvalidRecord):
		code, msg = ecode.InvalidRecord, ecode.FieldIsInvalid("document")
	case errors.Is(err, mongodb.ErrMissingCollection):
		code, msg = ecode.ParamErr, ecode.FieldIsRequired("collection")
	case errors.Is(err, context.DeadlineExceeded):
		code = ecode.Deadline
	}
	if code == ecode.StoreErr {
		logger.Errorf(c.Request.Context(), "collection request failed: %v", err)
	}
	reject(c, code, msg, err.Error())
}

// reject writes a failure with msg in place of the code's generic text.
func reject(c *gin.Context, code int, msg string, detail any) {
	e := resp.FromCode(code, detail)
	if msg != "" {
		e.Message = msg
	}
	resp.Fail(c.Writer, e)
}
