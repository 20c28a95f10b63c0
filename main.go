package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"pulse_server/auth"
	"pulse_server/routes"
	"pulse_server/services"
	"pulse_server/socket"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load .env when present; in production the environment is set directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Initialize Redis for typing presence
	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})

	// Initialize S3 for media storage
	s3Client := services.InitializeS3Client()
	mediaService := services.NewS3Service(s3Client, os.Getenv("S3_BUCKET_NAME"))

	// Initialize Services
	userService := &services.UserProfileService{Dynamo: dynamoService}
	followService := &services.FollowService{Dynamo: dynamoService}
	conversationService := &services.ConversationService{Dynamo: dynamoService, Users: userService}
	messageService := &services.MessageService{Dynamo: dynamoService, Conversations: conversationService, Users: userService, Media: mediaService}
	receiptService := &services.ReadReceiptService{Dynamo: dynamoService, Conversations: conversationService}
	typingService := &services.TypingService{Redis: redisClient, Conversations: conversationService, Users: userService}
	storyService := &services.StoryService{Dynamo: dynamoService, Users: userService, Follows: followService, Media: mediaService}

	// Token verifier for the identity provider
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	verifier := auth.NewVerifier(secret)

	// Set up the server port
	port := getEnv("PORT", "8080")
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to Pulse")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Socket.IO server for realtime delivery
	socketServer := socket.NewSocketServer()
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.Printf("❌ Socket server error: %v", err)
		}
	}()
	defer socketServer.Close()
	r.Handle("/socket.io/", socketServer)

	// All API routes require a verified principal
	api := r.PathPrefix("/").Subrouter()
	api.Use(verifier.Middleware)

	// Register routes
	routes.RegisterUserRoutes(api, userService)
	routes.RegisterConversationRoutes(api, conversationService, userService)
	routes.RegisterChatRoutes(api, messageService, receiptService, typingService, userService)
	routes.RegisterStoryRoutes(api, storyService, userService)
	routes.RegisterS3Routes(api, mediaService)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
