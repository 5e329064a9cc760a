package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"campusmind/backend/internal/alerts"
	"campusmind/backend/internal/api/handler"
	"campusmind/backend/internal/chathub"
	"campusmind/backend/internal/config"
	"campusmind/backend/internal/models"
	"campusmind/backend/internal/queue"
	"campusmind/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.WaitingEntry{},
		&models.Match{},
		&models.MessageRecord{},
		&models.Peer{},
		&models.GroupRoom{},
		&models.RoomMembership{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// seedRooms creates the default group chatrooms when missing.
func seedRooms(s storage.Storage) {
	defaults := []models.GroupRoom{
		{RoomID: "exam-stress", Name: "Exam Stress", Topic: "Coping with exam pressure and deadlines"},
		{RoomID: "homesick", Name: "Far From Home", Topic: "Living away from family and friends"},
		{RoomID: "general-support", Name: "General Support", Topic: "Anything on your mind"},
	}
	for i := range defaults {
		if _, err := s.GetRoomByID(defaults[i].RoomID); err == nil {
			continue
		}
		if err := s.SaveRoom(&defaults[i]); err != nil {
			log.Printf("Failed to seed room %s: %v", defaults[i].RoomID, err)
		}
	}
}

func main() {
	log.Println("Starting CampusMind Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)
	seedRooms(s)

	hub := chathub.NewManagerService(s)
	matcher := chathub.NewMatcherService(hub, s)

	// Moderation review queue. The service still runs without it: flagged
	// messages stay queryable through the flagged-message endpoints.
	if pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Printf("Warning: moderation queue unavailable: %v", err)
	} else {
		hub.Review = pub
		defer pub.Close()
	}

	// Crisis escalation to the counsellor duty channel, optional.
	if cfg.TelegramBotToken != "" {
		notifier, err := alerts.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("Warning: crisis alerts disabled: %v", err)
		} else {
			hub.Alerts = notifier
		}
	}

	go hub.Run()
	go matcher.Run()

	r := gin.Default()
	h := handler.NewHandler(hub, s, []byte(cfg.JWTSecret), os.Getenv("ADMIN_TOKEN"))

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	r.GET("/matches/:id/messages", h.GetMatchMessages)
	r.GET("/peers", h.ListPeers)

	r.GET("/rooms", h.ListRooms)
	r.POST("/rooms/:id/join", h.JoinRoom)
	r.GET("/rooms/:id/messages", h.GetRoomMessages)
	r.POST("/rooms/:id/messages", h.SendRoomMessage)

	r.GET("/moderation/flagged", h.GetFlaggedMessages)
	r.POST("/moderation/flagged/:id/review", h.ReviewMessage)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
