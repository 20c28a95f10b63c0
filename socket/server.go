package socket

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// NewSocketServer initializes and returns a new Socket.IO server. Clients
// join one room per conversation; message and typing events are relayed to
// the other participants in that room.
func NewSocketServer() *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(s socketio.Conn) error {
		log.Println("✅ Socket connected:", s.ID())
		return nil
	})

	// Join a conversation room
	server.OnEvent("/", "join", func(s socketio.Conn, data map[string]string) {
		conversationID := data["conversationId"]
		if conversationID == "" {
			log.Println("❌ Invalid conversationId in join request")
			return
		}
		log.Printf("👥 Socket %s joined conversation %s\n", s.ID(), conversationID)
		s.Join(conversationID)
	})

	// Relay new messages to the conversation room
	server.OnEvent("/", "sendMessage", func(s socketio.Conn, message map[string]interface{}) {
		conversationID, _ := message["conversationId"].(string)
		if conversationID == "" {
			log.Println("❌ Invalid conversationId in sendMessage event")
			return
		}
		log.Printf("📩 New message for conversation %s\n", conversationID)
		server.BroadcastToRoom("/", conversationID, "newMessage", message)
	})

	// Relay typing state so other participants see the indicator without
	// polling
	server.OnEvent("/", "typing", func(s socketio.Conn, data map[string]interface{}) {
		conversationID, _ := data["conversationId"].(string)
		if conversationID == "" {
			return
		}
		server.BroadcastToRoom("/", conversationID, "typing", data)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", s.ID(), reason)
	})

	return server
}
