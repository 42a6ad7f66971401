package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"negaboku/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
// Si jwtSvc no tiene secreto, las rutas que mutan quedan abiertas.
// mutationRoles vacio acepta cualquier rol con token valido.
func NewRouter(
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	relH *RelationshipHandler,
	jwtSvc *service.JWTService,
	limiter service.MutationRateLimiter,
	mutationRoles ...string,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("")
	api.Use(jsonContentTypeMiddleware())
	api.GET("/relationships", relH.GetRelationship)
	api.GET("/party/relationships", relH.GetPartyRelationships)
	api.POST("/party/analysis", relH.AnalyzeParty)
	api.GET("/characters/:id/events", relH.GetCharacterEvents)

	mutations := api.Group("")
	if jwtSvc.Enabled() {
		mutations.Use(JWTAuthMiddleware(jwtSvc, mutationRoles...))
	}
	if limiter != nil {
		mutations.Use(RateLimitMiddleware(limiter))
	}
	mutations.POST("/relationships/modify", relH.ModifyRelationship)
	mutations.POST("/battle-events", relH.PostBattleEvent)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if claims, ok := GetAuthClaims(c); ok {
			fields = append(fields, zap.String("player_id", claims.PlayerID), zap.String("role", claims.Role))
		}
		logger.Info("request", fields...)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
