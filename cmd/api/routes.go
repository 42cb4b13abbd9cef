package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/idempotency"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/logging"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/metrics"
	"github.com/raveagil-byte/steritrack-app-sub000/pkg/middleware"
)

// routerDeps is everything newRouter wires into the engine
type routerDeps struct {
	Services      *services
	Logger        *logging.Logger
	Metrics       *metrics.Metrics
	CSSDUnitID    string
	EnableTracing bool
	Keys          idempotency.KeyRepository
	Ready         func(ctx context.Context) error
}

func newRouter(deps routerDeps) *gin.Engine {
	router := gin.New()

	mwConfig := middleware.DefaultConfig(serviceName, deps.Logger)
	mwConfig.Metrics = deps.Metrics
	mwConfig.CSSDUnitID = deps.CSSDUnitID
	mwConfig.EnableTracing = deps.EnableTracing
	middleware.Setup(router, mwConfig)

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, deps.Ready))
	if deps.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(deps.Metrics))
	}

	idemConfig := idempotency.DefaultConfig(serviceName, deps.Keys, deps.Logger)
	idemConfig.Metrics = deps.Metrics

	s := deps.Services
	v1 := router.Group("/api/v1")
	v1.Use(idempotency.Middleware(idemConfig))
	{
		tx := v1.Group("/transactions")
		tx.POST("", middleware.WrapHandler(s.createTransaction))
		tx.GET("", middleware.WrapHandler(s.listTransactions))
		tx.GET("/:id", middleware.WrapHandler(s.getTransaction))
		tx.POST("/:id/verify", middleware.WrapHandler(s.verifyTransaction))
		tx.POST("/:id/validate", middleware.WrapHandler(s.validateTransaction))
		tx.GET("/:id/discrepancies", middleware.WrapHandler(s.transactionDiscrepancies))

		v1.GET("/discrepancies", middleware.WrapHandler(s.recentDiscrepancies))

		sets := v1.Group("/sets")
		sets.POST("", middleware.WrapHandler(s.defineSet))
		sets.GET("", middleware.WrapHandler(s.listSets))
		sets.GET("/:id", middleware.WrapHandler(s.getSet))
		sets.GET("/:id/availability", middleware.WrapHandler(s.setAvailability))

		v1.POST("/wash", middleware.WrapHandler(s.wash))
		v1.POST("/sterilize", middleware.WrapHandler(s.sterilize))
		v1.GET("/batches", middleware.WrapHandler(s.listBatches))

		packs := v1.Group("/packs")
		packs.POST("", middleware.WrapHandler(s.createPack))
		packs.GET("", middleware.WrapHandler(s.listPacks))
		packs.GET("/:id", middleware.WrapHandler(s.getPack))
		packs.POST("/:id/sterilize", middleware.WrapHandler(s.sterilizePack))

		v1.GET("/overdue", middleware.WrapHandler(s.overdueInstruments))

		instruments := v1.Group("/instruments")
		instruments.POST("", middleware.WrapHandler(s.registerInstrument))
		instruments.GET("", middleware.WrapHandler(s.listInstruments))
		instruments.GET("/:id", middleware.WrapHandler(s.getInstrument))
		instruments.POST("/:id/assets", middleware.WrapHandler(s.registerAsset))
		instruments.GET("/:id/assets", middleware.WrapHandler(s.listAssets))

		v1.PUT("/assets/:id/status", middleware.WrapHandler(s.updateAssetStatus))

		units := v1.Group("/units")
		units.POST("", middleware.WrapHandler(s.registerUnit))
		units.GET("", middleware.WrapHandler(s.listUnits))
		units.GET("/:id/overdue", middleware.WrapHandler(s.unitOverdue))
		units.GET("/:id/outstanding", middleware.WrapHandler(s.unitOutstanding))
		units.GET("/:id/stock", middleware.WrapHandler(s.unitStock))
		units.PUT("/:id/par/:instrumentId", middleware.WrapHandler(s.setParLevel))

		v1.GET("/audit", middleware.WrapHandler(s.checkStock))
	}

	return router
}
