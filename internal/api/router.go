package api

import (
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"settlement-form-backend/config"
	"settlement-form-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	// API group
	api := r.Group("/api")
	api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

	authed := api.Group("")
	authed.Use(mw.User(cfg.UserHeader), rateLimiter)
	{
		forms := authed.Group("/forms/:variant", resolveVariant)
		forms.GET("", handler.GetForm)
		forms.DELETE("", handler.DeleteForm)
		forms.PATCH("/fields", handler.PatchField)
		forms.POST("/validate", handler.ValidateForm)
		forms.POST("/errors/next", handler.NextError)
		forms.GET("/focus", handler.GetFocus)
		forms.POST("/page", handler.SetPage)
		forms.POST("/submit", handler.SubmitForm)

		reference := authed.Group("/reference", caching)
		reference.GET("/faculties", handler.GetFaculties)
		reference.GET("/faculties/:id/groups", handler.GetGroups)
		reference.GET("/dormitories", handler.GetDormitories)

		authed.GET("/subscriptions", handler.GetSubscription)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
