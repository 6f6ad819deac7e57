package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the cold-storage client used by the archival job.
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Cold-storage collection names.
const (
	CollectionArchivedConversations = "archived_conversations"
	CollectionArchivedMessages      = "archived_messages"
)

// NewMongoDB creates a new MongoDB connection with connection pooling.
func NewMongoDB(uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := "taskchat"
	log.Printf("✅ MongoDB connected (database: %s)", dbName)

	return &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}, nil
}

// Database returns the underlying database handle.
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Close disconnects the client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
