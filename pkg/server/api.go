package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/fabricops/fabricctl/pkg/static"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const MaxBodySize int64 = 16 << 20

var requestsServed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fabric_mock_requests_total",
	Help: "Requests served by the mock Fabric API",
}, []string{"method", "route", "status"})

type API struct {
	Gin           *gin.Engine
	Store         *Store
	Configuration *models.ServerConfiguration
}

func NewAPI(config *models.ServerConfiguration) *API {
	api := &API{
		Gin:           gin.New(),
		Store:         NewStore(config.Capacities),
		Configuration: config,
	}

	router := api.Gin
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(jsonLogs())
	router.Use(countRequests())
	router.Use(maxBodySize(MaxBodySize))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "fabric-mock-server", "version": static.Version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1", BearerToken())
	if len(config.Issuers) > 0 {
		v1.Use(ValidToken(config))
	}

	v1.GET("/capacities", api.listCapacities)

	v1.GET("/workspaces", api.listWorkspaces)
	v1.POST("/workspaces", api.createWorkspace)
	v1.GET("/workspaces/:workspace", api.getWorkspace)
	v1.PATCH("/workspaces/:workspace", api.updateWorkspace)
	v1.DELETE("/workspaces/:workspace", api.deleteWorkspace)
	v1.POST("/workspaces/:workspace/assignToCapacity", api.assignToCapacity)
	v1.POST("/workspaces/:workspace/unassignFromCapacity", api.unassignFromCapacity)
	v1.POST("/workspaces/:workspace/provisionIdentity", api.provisionIdentity)
	v1.POST("/workspaces/:workspace/deprovisionIdentity", api.deprovisionIdentity)

	v1.GET("/workspaces/:workspace/roleAssignments", api.listRoleAssignments)
	v1.POST("/workspaces/:workspace/roleAssignments", api.addRoleAssignment)
	v1.DELETE("/workspaces/:workspace/roleAssignments/:assignment", api.deleteRoleAssignment)

	v1.GET("/workspaces/:workspace/items", api.listItems)
	v1.POST("/workspaces/:workspace/items", api.createItem)
	v1.GET("/workspaces/:workspace/items/:item", api.getItem)
	v1.PATCH("/workspaces/:workspace/items/:item", api.updateItem)
	v1.DELETE("/workspaces/:workspace/items/:item", api.deleteItem)
	v1.POST("/workspaces/:workspace/items/:item/getDefinition", api.getDefinition)
	v1.POST("/workspaces/:workspace/items/:item/updateDefinition", api.updateDefinition)
	// job instances and job schedules share the jobs/ prefix
	v1.Match([]string{http.MethodGet, http.MethodPost, http.MethodDelete}, "/workspaces/:workspace/items/:item/jobs/*rest", api.jobs)

	v1.GET("/workspaces/:workspace/environments/:item", api.getEnvironment)
	v1.POST("/workspaces/:workspace/environments/:item/staging/publish", api.publishEnvironment)
	v1.GET("/workspaces/:workspace/lakehouses/:item/tables", api.listTables)

	v1.GET("/operations/:operation", api.getOperation)
	v1.GET("/operations/:operation/result", api.getOperationResult)

	return api
}

func (a *API) Run() error {
	addr := a.Configuration.Listen
	log.Info().Str("address", addr).Msg("starting mock fabric api")
	return a.Gin.Run(addr)
}

// Fabric error envelope
func fabricError(c *gin.Context, status int, code string, format string, args ...any) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		RequestID: c.GetString("request_id"),
		ErrorCode: code,
		Message:   fmt.Sprintf(format, args...),
	})
}

func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		fabricError(c, http.StatusBadRequest, "InvalidInput", "invalid JSON request body: %s", err)
		return false
	}
	return true
}

func origin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// Absolute URL of a path under /v1 on this server
func location(c *gin.Context, path string) string {
	return origin(c) + "/v1" + path
}

func jsonLogs() gin.HandlerFunc {
	return gin.LoggerWithFormatter(
		func(params gin.LogFormatterParams) string {
			line := log.Info().
				Any("request_id", params.Keys["request_id"]).
				Int("status", params.StatusCode).
				Str("method", params.Method).
				Str("path", params.Path).
				Str("client_ip", params.ClientIP).
				Dur("response_time", params.Latency)

			if reason, ok := params.Keys["reason"].(string); ok {
				line = line.Str("reason", reason)
			}
			if claims, ok := params.Keys["claims"].(map[string]any); ok {
				oid, _ := claims["oid"].(string)
				appid, _ := claims["appid"].(string)
				line = line.Str("oid", oid).Str("appid", appid)
			}
			line.Send()
			return ""
		},
	)
}

func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := uuid.New().String()
		ctx.Set("request_id", rid)
		ctx.Header("RequestId", rid)
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsServed.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
}
