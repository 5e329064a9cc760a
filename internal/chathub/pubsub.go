package chathub

import (
	"encoding/json"
	"log"

	"campusmind/backend/internal/models"
)

// startPubSubListener runs the goroutine feeding Redis pub/sub traffic into
// the hub loop. A decode failure skips the event; the subscription itself is
// left running and delivers the next snapshot.
func (m *ManagerService) startPubSubListener() {
	pubsub := m.Storage.SubscribeAll()
	if pubsub == nil {
		return
	}

	go func() {
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.ChatEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("Error unmarshalling pub/sub event on %s: %v", msg.Channel, err)
				continue
			}
			m.PubSubCh <- Fanout{Channel: msg.Channel, Event: ev}
		}
	}()
}
