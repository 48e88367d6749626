// Package httpapi exposes the connector over HTTP: the OAuth redirect
// endpoint and an admin-only REST surface for object metadata, auth status
// and logs.
package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	connector "github.com/goliatone/go-salesforce-connector"
	"github.com/goliatone/go-salesforce-connector/adapters/gologger"
	"github.com/goliatone/go-salesforce-connector/core"
)

type Handler struct {
	facade       *connector.Facade
	callbackPath string
	adminToken   string
	logger       core.Logger
}

type Option func(*Handler)

func WithLogger(logger core.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = strings.TrimSpace(token)
	}
}

func WithCallbackPath(path string) Option {
	return func(h *Handler) {
		h.callbackPath = path
	}
}

// NewHandler builds handlers over facade. The callback path and admin
// token default to cfg.
func NewHandler(facade *connector.Facade, cfg core.Config, opts ...Option) (*Handler, error) {
	if facade == nil {
		return nil, fmt.Errorf("httpapi: connector facade is required")
	}
	h := &Handler{
		facade:       facade,
		callbackPath: cfg.OAuth.CallbackPath,
		adminToken:   strings.TrimSpace(cfg.HTTP.AdminToken),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.logger = gologger.Component("http", nil, h.logger)
	if strings.TrimSpace(h.callbackPath) == "" {
		h.callbackPath = core.DefaultCallbackPath
	}
	if !strings.HasPrefix(h.callbackPath, "/") {
		h.callbackPath = "/" + h.callbackPath
	}
	return h, nil
}

// Register mounts all routes on router.
func (h *Handler) Register(router gin.IRouter) {
	router.GET(h.callbackPath, h.Callback)

	admin := router.Group("/", h.RequireAdmin)
	admin.GET("/objects", h.ListObjects)
	admin.GET("/objects/:object", h.DescribeObject)
	admin.GET("/objects/:object/:field", h.GetField)

	admin.GET("/auth/status", h.AuthStatus)
	admin.POST("/auth/authorize", h.Authorize)
	admin.POST("/auth/refresh", h.Refresh)
	admin.POST("/auth/revoke", h.Revoke)
	admin.PUT("/auth/credentials", h.SaveCredentials)

	admin.GET("/logs", h.ListLogs)
}

// NewRouter returns a gin engine with recovery, request logging and all
// connector routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), RequestLogger(h.logger))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(core.ErrorNotFound, "route not found"))
	})
	h.Register(router)
	return router
}
