package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"campusmind/backend/internal/config"
	"campusmind/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	storageSvc := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		fmt.Println("Usage: moderation <command> [args]")
		fmt.Println("Commands: flagged [limit] | review <message_id> | ban <user_id> [duration_in_hours] | unban <user_id>")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "flagged":
		limit := 20
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil {
				limit = n
			}
		}
		if err := listFlagged(storageSvc, limit); err != nil {
			log.Fatalf("Error listing flagged messages: %v", err)
		}
	case "review":
		if len(os.Args) != 3 {
			fmt.Println("Usage: moderation review <message_id>")
			os.Exit(1)
		}
		if err := storageSvc.MarkMessageReviewed(os.Args[2]); err != nil {
			log.Fatalf("Error marking message reviewed: %v", err)
		}
		fmt.Printf("Message %s marked as reviewed.\n", os.Args[2])
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: moderation ban <user_id> [duration_in_hours]")
			os.Exit(1)
		}
		var duration time.Duration
		if len(os.Args) > 3 {
			hours, err := strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
			duration = time.Duration(hours) * time.Hour
		}
		if err := storageSvc.BanUser(os.Args[2], duration); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %s has been banned.\n", os.Args[2])
	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: moderation unban <user_id>")
			os.Exit(1)
		}
		if err := storageSvc.UnbanUser(os.Args[2]); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %s has been unbanned.\n", os.Args[2])
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func listFlagged(s storage.Storage, limit int) error {
	messages, err := s.GetFlaggedMessages(limit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Println("No unreviewed flagged messages.")
		return nil
	}
	for _, msg := range messages {
		marker := ""
		if msg.HasCrisis {
			marker = " [CRISIS]"
		}
		fmt.Printf("%s%s channel=%s sender=%s (%s)\n  %s\n", msg.MessageID, marker, msg.ChannelID, msg.Alias, msg.SenderID, msg.Text)
		if msg.OriginalText != nil {
			fmt.Printf("  original: %s\n", *msg.OriginalText)
		}
	}
	return nil
}
