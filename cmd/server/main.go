package main

import (
	"context"
	"estimate-service/auth"
	"estimate-service/internal/config"
	"estimate-service/internal/db"
	"estimate-service/internal/document"
	"estimate-service/internal/middleware"
	"estimate-service/internal/mounting"
	"estimate-service/internal/project"
	"estimate-service/internal/registry"
	"estimate-service/internal/worker"
	"estimate-service/redis"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	// Initialize Redis
	redis.InitRedis()
	cache := redis.NewCache(redis.RedisClient)

	// Background pool for cache population
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	// External registries (counterparties, construction objects)
	registryClient := registry.NewHTTPClient(
		config.AppConfig.RegistryAddress,
		config.AppConfig.RegistrySecret,
	)

	// Initialize repository
	docRepo := document.NewRepository(db.AppDb)
	mountingRepo := mounting.NewRepository(db.AppDb)
	projectRepo := project.NewRepository(db.AppDb)
	// Initialize service
	docService := document.NewService(docRepo, registryClient, cache, pool)
	mountingService := mounting.NewService(mountingRepo, docRepo, registryClient, cache)
	projectService := project.NewService(projectRepo, cache)
	// Initialize handler
	docHandler := document.NewHandler(docService)
	mountingHandler := mounting.NewHandler(mountingService)
	projectHandler := project.NewHandler(projectService)

	// Initialize Gin router
	router := gin.Default()

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.ErrorHandler())

	api := router.Group("/", auth.AuthMiddleWare())

	// Document routes
	api.GET("/documents", docHandler.ListDocuments)
	api.GET("/documents/:id", docHandler.ShowDocument)
	api.PATCH("/documents/:id", docHandler.UpdateStatus)
	api.POST("/documents/:id/sections", docHandler.CreateSection)
	api.POST("/documents/:id/characteristics", docHandler.CreateCharacteristic)
	api.POST("/documents/:id/versions", docHandler.CreateVersion)
	api.GET("/chains/:chainId/versions", docHandler.ListVersions)

	// Hierarchy routes
	api.POST("/sections/:id/subsections", docHandler.CreateSubsection)
	api.PATCH("/sections/:id", docHandler.UpdateSection)
	api.DELETE("/sections/:id", docHandler.DeleteSection)
	api.PATCH("/subsections/:id", docHandler.UpdateSubsection)
	api.DELETE("/subsections/:id", docHandler.DeleteSubsection)
	api.PATCH("/characteristics/:id", docHandler.UpdateCharacteristic)
	api.DELETE("/characteristics/:id", docHandler.DeleteCharacteristic)

	// Estimate / mounting-estimate routes
	api.POST("/estimates", docHandler.CreateEstimate)
	api.POST("/estimates/:id/mounting-estimate", mountingHandler.CreateFromEstimate)
	api.POST("/mounting-estimates/:id/agree", mountingHandler.Agree)
	api.POST("/mounting-estimates/:id/works", mountingHandler.AddWork)
	api.PATCH("/works/:id", mountingHandler.UpdateWork)
	api.DELETE("/works/:id", mountingHandler.DeleteWork)

	// Project routes
	api.POST("/projects", docHandler.CreateProject)
	api.GET("/projects/:id/notes", projectHandler.ListNotes)
	api.POST("/projects/:id/notes", projectHandler.CreateNote)
	api.PATCH("/notes/:id", projectHandler.UpdateNote)
	api.DELETE("/notes/:id", projectHandler.DeleteNote)

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
