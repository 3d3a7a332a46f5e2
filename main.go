package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrox-fyp/agrox-api/config"
	"github.com/agrox-fyp/agrox-api/middleware"
	"github.com/agrox-fyp/agrox-api/models"
	"github.com/agrox-fyp/agrox-api/services"
	"github.com/gin-gonic/gin"
)

func main() {
	sendReminders := flag.Bool("send-reminders", false, "send today's crop reminder emails and exit")
	flag.Parse()

	log.Println("Starting AgroX API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	if err := config.GetDB().AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	initServices(cfg)

	if *sendReminders {
		if err := runReminderJob(context.Background()); err != nil {
			log.Fatalf("Reminder job failed: %v", err)
		}
		return
	}

	stopCleanup := make(chan struct{})
	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMin)
	authLimiter.StartCleanupRoutine(time.Minute, stopCleanup)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(cfg, authLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	close(stopCleanup)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

// initServices sets up mail delivery and, when a bucket is configured, image storage
func initServices(cfg *config.Config) {
	services.InitMailService(cfg)
	if cfg.ResendAPIKey == "" {
		log.Println("RESEND_API_KEY is not set; OTP and reminder emails will fail")
	}

	if cfg.AWSS3Bucket == "" {
		log.Println("AWS_S3_BUCKET is not set; listing images are disabled")
		return
	}
	s3Service, err := services.InitS3Service(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)
}

// runReminderJob sends today's reminder batch once
func runReminderJob(ctx context.Context) error {
	reminders := services.NewReminderService(config.GetDB(), services.GetMailService())
	result, err := reminders.SendDailyReminders(ctx, time.Now())
	if err != nil {
		return err
	}
	log.Printf("Reminder job finished for %s: recipients=%d sent=%d failed=%d",
		result.Day, result.Recipients, result.Sent, result.Failed)
	return nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "AgroX API is running",
	})
}

// databaseStatus checks that the connection pool can reach the database
func databaseStatus(c *gin.Context) {
	if err := config.PingDatabase(); err != nil {
		log.Printf("database status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
	})
}
