package database

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo bundles the client and the selected database so main can pass one
// handle down and disconnect cleanly on shutdown.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect connects to MongoDB and pings it. The database name is taken from
// the URI path when present, otherwise "bazario".
func Connect(mongoURI string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	log.Println("✅ Connected to MongoDB")

	return &Mongo{
		Client: client,
		DB:     client.Database(databaseName(mongoURI)),
	}, nil
}

func (m *Mongo) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func databaseName(mongoURI string) string {
	name := "bazario"
	if mongoURI == "" {
		return name
	}
	// Format: mongodb://.../database_name?...
	parts := strings.Split(mongoURI, "/")
	if len(parts) > 3 {
		dbPart := strings.Split(parts[len(parts)-1], "?")[0]
		if dbPart != "" {
			name = dbPart
		}
	}
	return name
}
