package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Logger *logrus.Logger
	// Locker serializes writes per record when set. Redis is best effort:
	// a lock that cannot be obtained is logged and the write proceeds.
	Locker *redislock.Client
	// PutCreates lets PUT create unknown ids (atomic upsert endpoint).
	PutCreates bool
	// AllowedOrigins restricts CORS; empty allows all.
	AllowedOrigins []string
	// RequireToken rejects requests without a valid API_SECRET-signed bearer token.
	RequireToken bool
}

type handler struct {
	store Store
	opts  Options
}

// NewRouter serves the agribenchmark REST contract over store:
//
//	GET    /:resource            list
//	GET    /:resource/:key       by id, else rows of farm :key (404 when none)
//	HEAD   /:resource/:id        existence probe
//	POST   /:resource            create
//	PUT    /:resource/:id        replace
//	DELETE /:resource/:id        delete
func NewRouter(store Store, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = config.GetLogger()
	}
	h := &handler{store: store, opts: opts}

	r := gin.New()
	r.Use(correlationId())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(requestLogger(opts.Logger))
	r.Use(authMiddleware(opts.RequireToken))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/:resource", h.list)
	r.GET("/:resource/:key", h.get)
	r.HEAD("/:resource/:key", h.head)
	r.POST("/:resource", h.create)
	r.PUT("/:resource/:key", h.replace)
	r.DELETE("/:resource/:key", h.remove)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func correlationId() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

func corsConfig(allowedOrigins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "x-correlation-id")
	return corsConfig
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        time.Since(start).String(),
			"correlation_id": cid,
		}).Info("request")
	}
}

func (h *handler) list(c *gin.Context) {
	rows, err := h.store.List(c.Request.Context(), c.Param("resource"))
	if err != nil {
		h.internalError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	resource, key := c.Param("resource"), c.Param("key")

	rec, err := h.store.Get(ctx, resource, key)
	if err == nil {
		c.JSON(http.StatusOK, rec)
		return
	}
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		h.internalError(c, "get", err)
		return
	}

	rows, err := h.store.ListByFarm(ctx, resource, key)
	if err != nil {
		h.internalError(c, "list by farm", err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) head(c *gin.Context) {
	_, err := h.store.Get(c.Request.Context(), c.Param("resource"), c.Param("key"))
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.Status(http.StatusNotFound)
	default:
		h.internalError(c, "head", err)
	}
}

func (h *handler) create(c *gin.Context) {
	resource := c.Param("resource")
	var rec record.Record
	if err := c.ShouldBindJSON(&rec); err != nil || rec == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	rec.EnsureID()

	unlock := h.lock(c.Request.Context(), resource, rec.ID())
	defer unlock()

	stored, err := h.store.Create(c.Request.Context(), resource, rec)
	if errors.Is(err, ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "record already exists"})
		return
	}
	if err != nil {
		h.internalError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *handler) replace(c *gin.Context) {
	ctx := c.Request.Context()
	resource, id := c.Param("resource"), c.Param("key")
	var rec record.Record
	if err := c.ShouldBindJSON(&rec); err != nil || rec == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if bodyId := rec.ID(); bodyId != "" && bodyId != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id in body does not match path"})
		return
	}
	rec[record.FieldId] = id

	unlock := h.lock(ctx, resource, id)
	defer unlock()

	if !h.opts.PutCreates {
		if _, err := h.store.Get(ctx, resource, id); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			h.internalError(c, "replace lookup", err)
			return
		}
	}

	stored, created, err := h.store.Put(ctx, resource, id, rec)
	if err != nil {
		h.internalError(c, "replace", err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, stored)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *handler) remove(c *gin.Context) {
	ctx := c.Request.Context()
	resource, id := c.Param("resource"), c.Param("key")

	unlock := h.lock(ctx, resource, id)
	defer unlock()

	err := h.store.Delete(ctx, resource, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		h.internalError(c, "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// lock takes the best-effort per-record redis lock and returns its release.
func (h *handler) lock(ctx context.Context, resource, id string) func() {
	if h.opts.Locker == nil {
		return func() {}
	}
	key := fmt.Sprintf("lock:%s:%s", strings.ToLower(resource), id)
	lock, err := h.opts.Locker.Obtain(ctx, key, 10*time.Second, nil)
	if err != nil {
		msg := "error obtaining redis lock; proceeding without redis lock: " + err.Error()
		if errors.Is(err, redislock.ErrNotObtained) {
			msg = "could not obtain redis lock; proceeding without redis lock"
		}
		h.opts.Logger.WithFields(logrus.Fields{
			"field":    "backend.lock",
			"resource": resource,
			"id":       id,
		}).Warn(msg)
		return func() {}
	}
	return func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			h.opts.Logger.WithFields(logrus.Fields{
				"field":    "backend.lock",
				"resource": resource,
				"id":       id,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}
}

func (h *handler) internalError(c *gin.Context, context string, err error) {
	config.LogError(h.opts.Logger, "backend", c.Request.Method+" "+c.FullPath(), context, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
