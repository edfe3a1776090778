package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/bazario/bazario-backend/internal/config"
	"github.com/bazario/bazario-backend/internal/database"
	"github.com/bazario/bazario-backend/internal/handlers"
	"github.com/bazario/bazario-backend/internal/middleware"
	"github.com/bazario/bazario-backend/internal/routes"
	"github.com/bazario/bazario-backend/internal/services"
	"github.com/bazario/bazario-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Connect to MongoDB (mask credentials in the log)
	log.Printf("Connecting to MongoDB...")
	if cfg.MongoURI != "" && strings.Contains(cfg.MongoURI, "@") {
		parts := strings.SplitN(cfg.MongoURI, "@", 2)
		log.Printf("MongoDB host: %s", parts[1])
	}
	db, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer db.Disconnect()

	// Redis is optional: without it profile caching degrades to direct
	// reads, rate limiting is disabled, and chat fan-out stays local.
	var rdb *redis.Client
	if cfg.RedisURI != "" {
		log.Printf("Connecting to Redis...")
		rdb, err = database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			log.Printf("⚠️  WARNING: failed to connect to Redis: %v", err)
			log.Println("   Caching, rate limiting and cross-instance chat are disabled")
			rdb = nil
		}
	} else {
		log.Println("⚠️  REDIS_URI not set. Caching, rate limiting and cross-instance chat are disabled")
	}

	// Stores and indexes
	users := store.NewUserStore(db.DB)
	shops := store.NewShopStore(db.DB)
	events := store.NewEventStore(db.DB)
	messages := store.NewMessageStore(db.DB)

	ctx := context.Background()
	for name, ensure := range map[string]func(context.Context) error{
		"users":    users.EnsureIndexes,
		"shops":    shops.EnsureIndexes,
		"messages": messages.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatalf("Failed to ensure %s indexes: %v", name, err)
		}
	}
	log.Println("✅ MongoDB indexes ensured")

	// Cloudinary
	var media services.Media
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cld, err := services.NewCloudinaryMedia(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Fatal("Failed to initialize Cloudinary:", err)
		}
		media = cld
		log.Println("✅ Cloudinary service initialized")
	} else {
		log.Fatal("Cloudinary credentials not found. Set CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
	}

	mailer := services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	activation := services.NewActivationTokens(cfg.ActivationSecret)
	userSessions := services.NewSessions(cfg.JWTSecret, services.UserCookie)
	sellerSessions := services.NewSessions(cfg.JWTSecret, services.SellerCookie)
	cache := services.NewCache(rdb)

	broker := services.NewChatBroker(services.NewChatHub(), rdb)
	broker.Start(ctx)

	userHandler := &handlers.UserHandler{
		Users:       users,
		Media:       media,
		Mail:        mailer,
		Activation:  activation,
		Sessions:    userSessions,
		Cache:       cache,
		FrontendURL: cfg.FrontendURL,
	}
	shopHandler := &handlers.ShopHandler{
		Shops:       shops,
		Media:       media,
		Mail:        mailer,
		Activation:  activation,
		Sessions:    sellerSessions,
		Cache:       cache,
		FrontendURL: cfg.FrontendURL,
	}
	eventHandler := &handlers.EventHandler{Events: events, Media: media}
	chatHandler := &handlers.ChatHandler{Messages: messages, Broker: broker}
	chatWS := &handlers.ChatWSHandler{
		Messages: messages,
		Broker:   broker,
		Users:    userSessions,
		Shops:    sellerSessions,
	}

	r := chi.NewRouter()

	// Custom CORS: set headers and respond to OPTIONS with 200 so preflight never gets 403
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		r.Use(middleware.SecurityHeaders)
		log.Println("✅ Production security headers enabled")
	}
	if rdb != nil {
		r.Use(middleware.RateLimit(rdb))
	}

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, routes.Deps{
		Users:          userHandler,
		Shops:          shopHandler,
		Events:         eventHandler,
		Chat:           chatHandler,
		ChatWS:         chatWS,
		UserSessions:   userSessions,
		SellerSessions: sellerSessions,
		UserStore:      users,
		ShopStore:      shops,
	})

	log.Printf("🚀 Bazario backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
