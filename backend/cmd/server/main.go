package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"wayfare-backend/internal/config"
	"wayfare-backend/internal/httpapi"
	"wayfare-backend/internal/services"
)

// @title Wayfare Planning Core API
// @version 1.0
// @description Itinerary planning decision engine: policy compilation, day scheduling, robustness evaluation, what-if analysis, and replanning.
// @termsOfService http://swagger.io/terms/

// @contact.name Wayfare Team

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	svc, err := services.NewServices(cfg)
	if err != nil {
		log.Printf("Warning: failed to initialize services: %v", err)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:3000",
	}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		"X-Requested-With",
	}
	corsConfig.AllowMethods = []string{
		"GET",
		"POST",
		"PUT",
		"PATCH",
		"DELETE",
		"OPTIONS",
	}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "wayfare-backend",
			"version": "1.0.0",
		})
	})

	var poiResolver httpapi.PoiResolver
	if svc != nil {
		poiResolver = svc.PoiStore
	}
	apiV1 := router.Group("/api/v1")
	httpapi.NewHandler(poiResolver).RegisterRoutes(apiV1)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if svc != nil {
		defer func() {
			if err := svc.Shutdown(context.Background()); err != nil {
				log.Printf("Error during service shutdown: %v", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}
	if port == "" || port == "0" {
		port = "8080"
	}

	log.Printf("Starting Wayfare planning core on port %s", port)
	log.Printf("Swagger documentation available at: http://localhost:%s/docs/index.html", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
