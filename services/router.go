package services

import (
	"github.com/SaiNageswarS/consent-core/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the query-service endpoints. /logout and /query require a
// live session; the rest are open, including /ask (see HandleAsk).
func NewRouter(auth *AuthService, query *QueryService, sessions session.Store) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	router.POST("/register", auth.Register)
	router.POST("/login", auth.Login)
	router.POST("/upload", query.HandleUpload)
	router.POST("/ask", query.HandleAsk)
	router.GET("/health", auth.Health)

	protected := router.Group("/", RequireSession(sessions))
	protected.POST("/logout", auth.Logout)
	protected.POST("/query", query.HandleQuery)

	return router
}
