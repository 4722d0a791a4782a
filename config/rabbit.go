package config

import (
	"fmt"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectRabbitMQ opens the connection and channel the outbound
// notifier publishes on. The URL comes from RABBITMQ_URL, or is built
// from the individual host/port/user/pass variables.
func ConnectRabbitMQ() (*amqp.Connection, *amqp.Channel, error) {
	uri := os.Getenv("RABBITMQ_URL")
	if uri == "" {
		host := os.Getenv("RABBITMQ_HOST")
		if host == "" {
			return nil, nil, fmt.Errorf("RABBITMQ_URL or RABBITMQ_HOST not set")
		}
		port := os.Getenv("RABBITMQ_PORT")
		if port == "" {
			port = "5672"
		}
		user := os.Getenv("RABBITMQ_USER")
		if user == "" {
			user = "guest"
		}
		pass := os.Getenv("RABBITMQ_PASS")
		if pass == "" {
			pass = "guest"
		}
		uri = fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, ch, nil
}
