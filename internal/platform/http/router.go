package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/weiwei-tsao/overlay-review/internal/business/imports"
	"github.com/weiwei-tsao/overlay-review/internal/business/overlay"
	"github.com/weiwei-tsao/overlay-review/internal/platform/logging"
	"github.com/weiwei-tsao/overlay-review/internal/repository"
	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// Router wires HTTP handlers.
type Router struct {
	overlay  *overlay.Service
	watcher  *imports.Watcher
	statuses imports.StatusFetcher
	origins  string
}

func NewRouter(overlaySvc *overlay.Service, watcher *imports.Watcher, statuses imports.StatusFetcher, allowedOrigins string, logger zerolog.Logger) *gin.Engine {
	r := &Router{
		overlay:  overlaySvc,
		watcher:  watcher,
		statuses: statuses,
		origins:  allowedOrigins,
	}

	router := gin.New()
	router.Use(logging.GinMiddleware(logger), gin.Recovery(), r.corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/projects/:projectId/suggestions/aggregated", r.listAggregated)
		api.POST("/projects/:projectId/suggestions/sync", r.syncSuggestions)
		api.GET("/projects/:projectId/severity", r.getSeverity)
		api.GET("/projects/:projectId/overview", r.getStoredOverview)
		api.POST("/overviews/refresh", r.refreshOverviews)

		api.GET("/imports/:importId/status", r.getImportStatus)
		api.POST("/imports/:importId/watch", r.startWatch)
		api.GET("/watches", r.listWatches)
		api.GET("/watches/:watchId", r.getWatch)
		api.DELETE("/watches/:watchId", r.cancelWatch)
	}

	return router
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	origins := strings.Split(r.origins, ",")
	trimmed := make([]string, 0, len(origins))
	for _, o := range origins {
		if t := strings.TrimSpace(o); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := "*"
		for _, o := range trimmed {
			if o == "*" || o == origin {
				allowed = origin
				break
			}
		}
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, imports.ErrImportIDRequired):
		status = http.StatusBadRequest
	case errors.Is(err, overlay.ErrNoUpstream):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (r *Router) listAggregated(c *gin.Context) {
	groups, err := r.overlay.Aggregated(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": groups,
		"total": len(groups),
	})
}

func (r *Router) syncSuggestions(c *gin.Context) {
	n, err := r.overlay.Sync(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": n})
}

func (r *Router) getSeverity(c *gin.Context) {
	visible, err := model.ParseStatusFilter(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	overview, err := r.overlay.Overview(c.Request.Context(), c.Param("projectId"), visible)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (r *Router) getStoredOverview(c *gin.Context) {
	overview, err := r.overlay.StoredOverview(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

type refreshReq struct {
	ProjectIDs []string `json:"projectIds"`
}

func (r *Router) refreshOverviews(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if len(req.ProjectIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectIds is required"})
		return
	}
	overviews, err := r.overlay.RefreshOverviews(c.Request.Context(), req.ProjectIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": overviews})
}

func (r *Router) getImportStatus(c *gin.Context) {
	status, err := r.statuses.FetchImportStatus(c.Request.Context(), c.Param("importId"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (r *Router) startWatch(c *gin.Context) {
	watch, err := r.watcher.Watch(c.Request.Context(), c.Param("importId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"watch":   watch,
		"message": "Polling started. Check progress with GET /api/watches/" + watch.WatchID,
	})
}

func (r *Router) listWatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	watches, err := r.watcher.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": watches})
}

func (r *Router) getWatch(c *gin.Context) {
	watchID := c.Param("watchId")
	watch, err := r.watcher.Get(c.Request.Context(), watchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"watch":   watch,
		"running": r.watcher.IsRunning(watchID),
	})
}

func (r *Router) cancelWatch(c *gin.Context) {
	watch, err := r.watcher.Cancel(c.Request.Context(), c.Param("watchId"))
	if errors.Is(err, imports.ErrWatchNotRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watch": watch})
}
