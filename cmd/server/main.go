package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yilunzh/household-finance-sub002/internal/auth"
	"github.com/yilunzh/household-finance-sub002/internal/config"
	"github.com/yilunzh/household-finance-sub002/internal/database"
	"github.com/yilunzh/household-finance-sub002/internal/handlers"
	"github.com/yilunzh/household-finance-sub002/internal/middleware"
	"github.com/yilunzh/household-finance-sub002/internal/repository"
	"github.com/yilunzh/household-finance-sub002/pkg/logging"
)

var Version = "dev"

func main() {
	logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready")

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	households := repository.NewHouseholdRepository(db)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.HouseholdMiddleware(households, db, cfg.BaseDomain))

	r.GET("/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": Version})
	})

	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version": Version,
			"service": "household-finance",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Platform-level: registers a new household, no subdomain needed
		api.POST("/auth/register", handlers.Register(db, jwtService))

		// Everything below requires a household subdomain
		household := api.Group("")
		household.Use(middleware.RequireHousehold())
		{
			household.POST("/auth/login", handlers.Login(jwtService))

			authed := household.Group("")
			authed.Use(middleware.RequireAuth(jwtService))
			{
				authed.GET("/household", handlers.GetHouseholdProfile)
				authed.GET("/members", handlers.ListMembers)

				authed.GET("/transactions", handlers.ListTransactions)
				authed.POST("/transactions", handlers.CreateTransaction)
				authed.GET("/transactions/:id", handlers.GetTransaction)
				authed.PUT("/transactions/:id", handlers.UpdateTransaction)
				authed.DELETE("/transactions/:id", handlers.DeleteTransaction)

				authed.GET("/split-rules", handlers.GetSplitRules)
				authed.GET("/budget-rules", handlers.ListBudgetRules)

				authed.GET("/reconciliation/:month", handlers.GetReconciliation)
				authed.POST("/reconciliation/:month/settle", handlers.SettleMonth)
				authed.DELETE("/reconciliation/:month/settle", handlers.UnsettleMonth)
				authed.GET("/settlements", handlers.ListSettlements)

				owner := authed.Group("")
				owner.Use(middleware.RequireOwner())
				{
					owner.POST("/members", handlers.CreateMember)
					owner.PATCH("/members/:id", handlers.UpdateMember)

					owner.PUT("/split-rules", handlers.PutSplitRules)
					owner.POST("/budget-rules", handlers.CreateBudgetRule)
					owner.PUT("/budget-rules/:id", handlers.UpdateBudgetRule)
					owner.DELETE("/budget-rules/:id", handlers.DeleteBudgetRule)
				}
			}
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}
