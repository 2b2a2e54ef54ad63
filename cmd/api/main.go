package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"pricing-table-api/internal/cache"
	"pricing-table-api/internal/config"
	"pricing-table-api/internal/database"
	"pricing-table-api/internal/events"
	"pricing-table-api/internal/features"
	"pricing-table-api/internal/handler"
	"pricing-table-api/internal/middleware"
	"pricing-table-api/internal/models"
	"pricing-table-api/internal/pricing"
	"pricing-table-api/internal/render"
	"pricing-table-api/internal/seed"
	"pricing-table-api/internal/service"
	"pricing-table-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	seedFile := flag.String("seed", "", "Path to YAML seed file applied at startup")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	location, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve site time zone: %v", err)
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "Cache rendered pricing tables")
	flags.Register(features.FeatureEventHooksEnabled, true, "Publish domain events")
	flags.Register(features.FeatureExpressionConditions, true, "Evaluate JsonLogic expression conditions")
	flags.Register(features.FeatureMaxQuantityCapping, true, "Consult order-quantity caps for open-ended tiers")
	defer flags.Shutdown()

	var tableCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisAddr != "" {
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
			if err != nil {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			defer redisCache.Close()
			tableCache = redisCache
		} else {
			tableCache = cache.NewInMemoryCache()
		}
	}

	eventBus := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventBus.Shutdown()
	eventBus.Subscribe(events.EventTableRendered, func(ctx context.Context, ev events.Event) error {
		if data, ok := ev.Data.(events.TableRenderedData); ok {
			log.Printf("rendered pricing table product=%d audience=%s rows=%d", data.ProductID, data.Viewer, data.RowCount)
		}
		return nil
	})

	registry := pricing.NewRegistry()
	if flags.IsEnabled(features.FeatureExpressionConditions) {
		registry.Register("expression", pricing.ExpressionEvaluator())
	}

	formatter := render.NewFormatter(render.Format{
		CurrencySymbol:    cfg.Display.CurrencySymbol,
		SymbolPosition:    cfg.Display.SymbolPosition,
		DecimalSeparator:  cfg.Display.DecimalSeparator,
		ThousandSeparator: cfg.Display.ThousandSeparator,
		Decimals:          cfg.Display.Decimals,
	})

	svc := service.NewService(db, service.Options{
		Selector: pricing.NewSelector(registry, location),
		Builder: &pricing.TableBuilder{
			Format: formatter,
			Labels: pricing.Labels{
				CartonSingular: cfg.Display.CartonSingular,
				CartonPlural:   cfg.Display.CartonPlural,
				UnitSingular:   cfg.Display.UnitSingular,
				UnitPlural:     cfg.Display.UnitPlural,
			},
			Logf: log.Printf,
		},
		Renderer: render.NewHTMLRenderer(),
		Cache:    tableCache,
		Events:   eventBus,
		Features: flags,
		Location: location,
		AttributeKey: cfg.Display.PiecesPerCartonKey,
		Header: models.TableHeader{
			Cartons:  cfg.Display.CartonsHeader,
			Discount: cfg.Display.DiscountHeader,
			Price:    cfg.Display.PriceHeader,
		},
		CacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	})

	if *seedFile != "" {
		file, err := seed.Load(*seedFile)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
		if err := seed.Apply(context.Background(), file, svc); err != nil {
			log.Fatalf("Failed to apply seed file: %v", err)
		}
		log.Printf("Seeded %d products from %s", len(file.Products), *seedFile)
	}

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		JWTSecret:   []byte(cfg.Security.JWTSecret),
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.SaveProduct)
		r.Put("/{product_id}/rule-sets", h.SaveRuleSets)
		r.Get("/{product_id}/pricing-table", h.GetPricingTable)
	})

	r.Get("/shortcodes/{shortcode}", h.RenderShortcode)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting HTTP server on %s", addr)
	log.Printf("Database: %s", cfg.Database.Path)
	log.Printf("Site time zone: %s", location)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
