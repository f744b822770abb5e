package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"marketplace-backend/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
	cfg      config.MongoConfig
}

func NewMongoClient(cfg config.MongoConfig) *MongoClient {
	return &MongoClient{cfg: cfg}
}

func (m *MongoClient) Connect(ctx context.Context) error {
	log.Println("[MONGO] Connecting to MongoDB...")

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(m.cfg.URI).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetServerSelectionTimeout(m.cfg.Timeout))
	if err != nil {
		return fmt.Errorf("mongo connect failed: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	m.Client = client
	m.Database = client.Database(m.cfg.Database)

	log.Println("[MONGO] Connected successfully")
	return nil
}

func (m *MongoClient) HealthCheck(ctx context.Context) error {
	if m.Client == nil {
		return fmt.Errorf("mongo client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	return nil
}

func (m *MongoClient) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}
