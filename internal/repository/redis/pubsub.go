package redis

import (
	"context"
	"encoding/json"
	"log"

	"Talk_Flow/internal/ws"
)

// EventBus publishes live-change events through Redis channels so every api
// process sees commits made by its peers. A bridge on each process fans the
// channel traffic back into the local hub.
type EventBus struct{}

func (b *EventBus) Publish(ctx context.Context, topic string, ev ws.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return Client.Publish(ctx, topic, raw).Err()
}

// RunBridge subscribes to all chat and user channels and replays them into
// the hub until ctx ends. Run it once per process.
func RunBridge(ctx context.Context, hub *ws.Hub) {
	sub := Client.PSubscribe(ctx, ws.TopicChatPrefix+"*", ws.TopicUserPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev ws.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("pubsub bridge: bad event on %s: %v", msg.Channel, err)
				continue
			}
			hub.Broadcast(msg.Channel, ev)
		}
	}
}
