package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"bocado/internal/platform/logger"
)

// ErrMissingURI indicates that the expected environment variable is not set.
var ErrMissingURI = errors.New("mongodb: missing MONGODB_URI environment variable")

const defaultRetryInterval = 15 * time.Second

// Service owns a MongoDB client. The caller must Disconnect when done.
type Service struct {
	client *mongo.Client
}

// Connect establishes a MongoDB client from MONGODB_URI and pings it.
func Connect(ctx context.Context) (*Service, error) {
	uri := strings.TrimSpace(os.Getenv("MONGODB_URI"))
	if uri == "" {
		return nil, ErrMissingURI
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opt := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opt)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	return &Service{client: client}, nil
}

// ConnectWithRetry keeps trying to connect until the context is cancelled or
// maxRetries attempts were made. maxRetries <= 0 means unlimited.
func ConnectWithRetry(ctx context.Context, maxRetries int, log *logger.Logger) (*Service, error) {
	interval := retryInterval()
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mongodb: cancelled before connecting: %w", ctx.Err())
		default:
		}

		attempt++
		svc, err := Connect(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("mongodb connected", "attempts", attempt)
			}
			return svc, nil
		}
		log.Warn("mongodb connect failed", "attempt", attempt, "error", err)
		if maxRetries > 0 && attempt >= maxRetries {
			return nil, fmt.Errorf("mongodb: giving up after %d attempts: %w", attempt, err)
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, fmt.Errorf("mongodb: cancelled while retrying: %w", ctx.Err())
		}
	}
}

// Collection returns a handle to the requested collection.
func (s *Service) Collection(dbName, collName string) *mongo.Collection {
	return s.client.Database(dbName).Collection(collName)
}

// Ping verifies the connection is still alive.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Disconnect closes the underlying client.
func (s *Service) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func retryInterval() time.Duration {
	val := strings.TrimSpace(os.Getenv("MONGO_RETRY_INTERVAL"))
	if val == "" {
		return defaultRetryInterval
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultRetryInterval
}
