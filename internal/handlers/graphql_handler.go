package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"

	"github.com/imrishuroy/go-crm-graph/internal/crm"
	"github.com/imrishuroy/go-crm-graph/internal/graph"
	"github.com/imrishuroy/go-crm-graph/internal/validation"
)

// HandlerConfig groups dependencies for the graph endpoint.
type HandlerConfig struct {
	Service *crm.Service
	Logger  *slog.Logger
}

// graphQLRequest is the standard GraphQL-over-HTTP POST body.
type graphQLRequest struct {
	Query         string                 `json:"query" validate:"required"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// RegisterGraphQLRoutes builds the schema and mounts POST /graphql.
func RegisterGraphQLRoutes(r *gin.Engine, cfg HandlerConfig) error {
	schema, err := graph.NewSchema(cfg.Service)
	if err != nil {
		return err
	}

	v := validation.New()

	r.POST("/graphql", func(c *gin.Context) {
		var req graphQLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "invalid_request_body",
				"msg":   err.Error(),
			})
			return
		}
		if err := v.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "validation_failed",
				"msg":   err.Error(),
			})
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        c.Request.Context(),
		})
		if result.HasErrors() {
			cfg.Logger.Warn("graphql request failed",
				"operation", req.OperationName,
				"errors", len(result.Errors),
			)
		}

		// Resolver failures are part of the GraphQL response body, so the
		// transport status stays 200 either way.
		c.JSON(http.StatusOK, result)
	})

	return nil
}

// RequestLogger logs one line per request with method, path, status and
// latency.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
