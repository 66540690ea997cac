package router

import (
	"strings"
	"time"

	"magirls/internal/config"
	"magirls/internal/handler"
	"magirls/internal/infra"
	"magirls/internal/middleware"
	"magirls/internal/realtime"
	"magirls/internal/repository"
	"magirls/internal/service"
	"magirls/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const priceCacheTTL = 10 * time.Minute

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailCB *infra.CircuitBreaker, hub *realtime.Hub) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	// ── Repositories ─────────────────────────────────────────────────────────
	txm := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	ledger := repository.NewStockLedger(db)
	movementRepo := repository.NewStockMovementRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	allocator := service.NewStockAllocator(batchRepo, ledger, movementRepo)
	receiver := service.NewStockReceiver(batchRepo, ledger, movementRepo)

	var (
		jobs   service.JobQueue
		prices service.PriceCache
	)
	if rdb != nil {
		jobs = worker.NewDispatcher(rdb)
		prices = infra.NewPriceCache(rdb, priceCacheTTL)
	}
	var events service.EventPublisher
	if hub != nil {
		events = hub
	}

	authSvc := service.NewAuthService(userRepo, cfg)
	catalogSvc := service.NewCatalogService(txm, catalogRepo, warehouseRepo, batchRepo, receiver, prices, cfg)
	inventorySvc := service.NewInventoryService(txm, catalogRepo, warehouseRepo, batchRepo, ledger, movementRepo, receiver, events, cfg)
	saleSvc := service.NewSaleService(txm, warehouseRepo, catalogRepo, ledger, customerRepo, saleRepo, allocator, jobs, events, cfg)
	reportSvc := service.NewReportService(reportRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	salesH := handler.NewSalesHandler(saleSvc)
	dashboardH := handler.NewDashboardHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailCB))
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if hub != nil {
		r.GET("/ws", realtime.ServeWs(hub, cfg.JWTSecret))
	}

	r.POST("/v1/auth/login", middleware.LoginRateLimiter(), authH.Login)
	r.GET("/v1/price/:code", catalogH.PriceCheck)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/dashboard/summary", dashboardH.Summary)

		v1.POST("/catalog/scan-upsert", catalogH.ScanUpsert)

		inv := v1.Group("/inventory")
		{
			inv.GET("/by-code/:code", catalogH.ByCode)
			inv.GET("/items", catalogH.ListItems)
			inv.PATCH("/items/:variant_id", catalogH.UpdateItem)
			inv.DELETE("/items/:variant_id", catalogH.DeleteItem)
			inv.GET("/alerts/low-stock", catalogH.LowStock)
			inv.POST("/scan-increase", inventoryH.ScanIncrease)
			inv.POST("/receive", inventoryH.Receive)
			inv.GET("/movements", inventoryH.Movements)
			inv.GET("/movements/export", inventoryH.ExportMovements)
			inv.GET("/batches/:id/audit", inventoryH.AuditBatch)
		}

		sales := v1.Group("/sales")
		{
			sales.POST("/checkout", salesH.Checkout)
			sales.GET("", salesH.List)
			sales.GET("/:id", salesH.Get)
			sales.GET("/:id/receipt", salesH.Receipt)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

func corsConfig(origins string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	origins = strings.TrimSpace(origins)
	if origins == "" || origins == "*" {
		c.AllowAllOrigins = true
		return c
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.AllowOrigins = append(c.AllowOrigins, o)
		}
	}
	return c
}
