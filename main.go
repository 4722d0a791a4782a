package main

import (
	"log"
	"net/http"
	"os"

	"rural-voice-be/config"
	"rural-voice-be/controllers"
	"rural-voice-be/routes"
	"rural-voice-be/services"
	"rural-voice-be/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db := config.ConnectDB()
	if db == nil {
		log.Fatal("Failed to connect to MongoDB")
	}
	log.Println("MongoDB connection established successfully!")

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedis()
	} else {
		log.Println("REDIS_ADDRESS not set, issue rate limiting disabled")
	}

	issueStore := store.NewMongoIssueStore(db)
	userStore := store.NewMongoUserStore(db)
	villageStore := store.NewMongoVillageStore(db)

	var notifier services.Notifier = services.LogNotifier{}
	if conn, ch, err := config.ConnectRabbitMQ(); err != nil {
		log.Printf("RabbitMQ unavailable, outbound notifications will be logged only: %v", err)
	} else {
		defer conn.Close()
		defer ch.Close()
		amqpNotifier, err := services.NewAMQPNotifier(ch, "outbound_notifications")
		if err != nil {
			log.Fatalf("Failed to declare notification queue: %v", err)
		}
		notifier = amqpNotifier
		log.Println("Connected to RabbitMQ")
	}
	dispatcher := services.NewDispatcher(notifier, 128)
	defer dispatcher.Close()

	broker := services.NewBroker()
	engine := services.NewEngine(issueStore, userStore, villageStore, broker, dispatcher)

	scheduler := services.NewScheduler(issueStore,
		config.DurationEnv("ESCALATION_INTERVAL", services.DefaultEscalationInterval),
		config.DurationEnv("ESCALATION_THRESHOLD", services.DefaultStalenessThreshold))
	scheduler.Start()
	defer scheduler.Stop()

	r := gin.Default()

	routes.IssueRoutes(r, controllers.NewIssueController(engine))
	routes.VillageRoutes(r, controllers.NewVillageController(villageStore))
	routes.UserRoutes(r, controllers.NewUserController(userStore))
	routes.StreamRoutes(r, controllers.NewStreamController(broker))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
