package main

import (
	"net/http"
	"time"

	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/controllers"
	"github.com/agrox-fyp/agrox-api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// route is one entry of the API table. Protected routes require a bearer
// token and limited routes share the per-client auth rate limiter.
type route struct {
	method    string
	path      string
	handler   gin.HandlerFunc
	protected bool
	limited   bool
}

var routes = []route{
	{http.MethodGet, "/health", healthCheck, false, false},
	{http.MethodGet, "/database/status", databaseStatus, false, false},

	// Accounts
	{http.MethodPost, "/signup", controllers.Signup, false, true},
	{http.MethodPost, "/signup/verify_otp", controllers.VerifySignupOTP, false, true},
	{http.MethodPost, "/login", controllers.Login, false, true},
	{http.MethodPost, "/otp/send_otp", controllers.SendPasswordOTP, false, true},
	{http.MethodPost, "/otp/verify_otp", controllers.VerifyPasswordOTP, false, true},
	{http.MethodPost, "/otp/reset_password", controllers.ResetPassword, false, true},
	{http.MethodGet, "/users/me", controllers.GetMyProfile, true, false},
	{http.MethodPut, "/users/me", controllers.UpdateMyProfile, true, false},

	// Listings
	{http.MethodGet, "/wheat-listings", controllers.ListWheatListings, false, false},
	{http.MethodGet, "/wheat-listings/:id", controllers.GetWheatListing, false, false},
	{http.MethodPost, "/wheat-listings", controllers.CreateWheatListing, true, false},
	{http.MethodDelete, "/wheat-listings/:id", controllers.DeleteWheatListing, true, false},
	{http.MethodGet, "/pesticides", controllers.ListPesticideListings, false, false},
	{http.MethodGet, "/pesticides/:id", controllers.GetPesticideListing, false, false},
	{http.MethodPost, "/pesticides", controllers.CreatePesticideListing, true, false},
	{http.MethodDelete, "/pesticides/:id", controllers.DeletePesticideListing, true, false},
	{http.MethodGet, "/machinery", controllers.ListMachineryListings, false, false},
	{http.MethodGet, "/machinery/:id", controllers.GetMachineryListing, false, false},
	{http.MethodPost, "/machinery", controllers.CreateMachineryListing, true, false},
	{http.MethodDelete, "/machinery/:id", controllers.DeleteMachineryListing, true, false},

	// Chat
	{http.MethodPost, "/chat/rooms", controllers.CreateChatRoom, true, false},
	{http.MethodGet, "/chat/rooms", controllers.ListChatRooms, true, false},
	{http.MethodGet, "/chat/rooms/:id/messages", controllers.GetChatMessages, true, false},
	{http.MethodPost, "/chat/rooms/:id/messages", controllers.SendChatMessage, true, false},
	{http.MethodDelete, "/chat/rooms/:id", controllers.DeleteChatRoom, true, false},
	{http.MethodGet, "/chat/unread-count", controllers.GetUnreadCount, true, false},

	// Crop reminders
	{http.MethodPost, "/reminders", controllers.CreateReminder, true, false},
	{http.MethodGet, "/reminders", controllers.ListReminders, true, false},
	{http.MethodPost, "/reminders/mark-task-done", controllers.MarkReminderTaskDone, true, false},
	{http.MethodPost, "/reminders/trigger", controllers.TriggerReminders, false, true},
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Job-Key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			return corsCfg
		}
	}
	corsCfg.AllowOrigins = cfg.CORSOrigins
	corsCfg.AllowCredentials = true
	return corsCfg
}

// setupRouter builds the engine with every API route under /api/v1
func setupRouter(cfg *config.Config, authLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	requireToken := middleware.EnsureValidToken(cfg)
	limit := authLimiter.Middleware()

	v1 := router.Group("/api/v1")
	for _, r := range routes {
		var handlers []gin.HandlerFunc
		if r.limited {
			handlers = append(handlers, limit)
		}
		if r.protected {
			handlers = append(handlers, requireToken)
		}
		handlers = append(handlers, r.handler)
		v1.Handle(r.method, r.path, handlers...)
	}

	return router
}
