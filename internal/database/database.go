package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo dials MongoDB and returns the client and the database that
// holds the ledger collections. dbName wins over a database named in the URI.
func ConnectMongo(ctx context.Context, mongoURI, dbName string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	// Use longer timeout for Atlas connections
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	logger.Info("connecting to MongoDB")
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, err
	}

	if dbName == "" {
		dbName = databaseFromURI(mongoURI)
	}
	logger.Info("connected to MongoDB", zap.String("database", dbName))
	return client, client.Database(dbName), nil
}

// databaseFromURI extracts the path segment of mongodb://host/db?opts.
func databaseFromURI(uri string) string {
	const fallback = "macrolog"
	rest := uri
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	i := strings.Index(rest, "/")
	if i < 0 {
		return fallback
	}
	name := strings.Split(rest[i+1:], "?")[0]
	if name == "" {
		return fallback
	}
	return name
}

func DisconnectMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}
