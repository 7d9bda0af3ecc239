package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"bridge-backend/internal/config"
	"bridge-backend/internal/handlers"
	"bridge-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		allowCredentials := true
		maxAge := 3600

		envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if envOrigins != "" {
			origins := strings.Split(envOrigins, ",")
			allowedOrigins = make([]string, 0, len(origins))
			for _, o := range origins {
				trimmed := strings.TrimSpace(o)
				if trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			allowedOrigins = []string{"*"}
		}

		allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
		originAllowed := allowAll
		if !allowAll && origin != "" {
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					originAllowed = true
					break
				}
			}
			if !originAllowed {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if originAllowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept, X-Admin-TOTP")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Next()
	}
}

// SetupRouter wires the HTTP surface: health probes, metrics, the public
// bridge API, the admin config API and the WebSocket push endpoint.
func SetupRouter(
	bridgeHandler *handlers.BridgeHandler,
	adminHandler *handlers.AdminConfigHandler,
	wsHandler *handlers.WebSocketHandler,
) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	logger := logrus.New()

	var allowedIPs []string
	totpSecret := ""
	if config.AppConfig != nil {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
		totpSecret = config.AppConfig.Admin.TOTPSecret
		if len(allowedIPs) > 0 {
			logger.WithFields(logrus.Fields{
				"allowed_ips": allowedIPs,
				"count":       len(allowedIPs),
			}).Info("Admin API IP whitelist configured")
		} else {
			logger.Info("No admin.allowedIPs configured, using localhost-only mode")
		}
	} else {
		logger.Warn("AppConfig is nil, using localhost-only mode")
	}

	authMiddleware := middleware.NewAuthMiddleware(logger)
	adminGuard := middleware.NewAdminGuard(logger, allowedIPs, totpSecret)

	// ============ Health Check ============
	r.GET("/ping", handlers.PingHandler)
	r.GET("/health", handlers.HealthCheckHandler)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ WebSocket Push ============
	r.GET("/ws", wsHandler.HandleWebSocket)

	// ============ API Routes ============
	v1 := r.Group("/api/v1")
	{
		v1.GET("/transactions/minted", bridgeHandler.ListMinted)
		v1.GET("/transactions/finalized", bridgeHandler.ListFinalized)
		v1.GET("/public-key", bridgeHandler.PublicKey)

		v1.POST("/withdraw", authMiddleware.RequireAuth(), bridgeHandler.Withdraw)

		admin := v1.Group("/admin", adminGuard.Restrict())
		{
			admin.POST("/config", adminHandler.SetConfig)
			admin.GET("/config/:key", adminHandler.GetConfig)
		}
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api/v1 endpoints for available APIs",
		})
	})

	return r
}
