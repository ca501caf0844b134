package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sebasr/greetcard-service/internal/models"
)

const greetingsCollection = "greetings"

// MongoGreetingRepository implements GreetingRepository using MongoDB.
// The greeting identifier is the document _id.
type MongoGreetingRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// NewMongoGreetingRepository connects to MongoDB and verifies the connection
func NewMongoGreetingRepository(ctx context.Context, uri, dbName string) (*MongoGreetingRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoGreetingRepository{
		client: client,
		coll:   client.Database(dbName).Collection(greetingsCollection),
		now:    time.Now,
	}, nil
}

// Server error code for a document rejected by the collection validator
const mongoDocumentValidationFailure = 121

// greetingSchema mirrors the field bounds enforced by the greetings table
var greetingSchema = bson.M{
	"bsonType": "object",
	"required": bson.A{"_id", "sender", "receiver", "message", "created_at"},
	"properties": bson.M{
		"_id":      bson.M{"bsonType": "string", "pattern": "^[A-Za-z0-9-]{1,64}$"},
		"sender":   bson.M{"bsonType": "string", "maxLength": models.MaxNameLength, "pattern": `\S`},
		"receiver": bson.M{"bsonType": "string", "maxLength": models.MaxNameLength, "pattern": `\S`},
		"message":  bson.M{"bsonType": "string", "maxLength": models.MaxMessageLength},
		"day_index": bson.M{
			"bsonType": bson.A{"int", "long"},
			"minimum":  0,
			"maximum":  models.MaxDayIndex,
		},
		"extras": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"subtitle": bson.M{"bsonType": "string", "maxLength": models.MaxSubtitleLength},
				"quote":    bson.M{"bsonType": "string", "maxLength": models.MaxQuoteLength},
				"memories": bson.M{
					"bsonType": "array",
					"maxItems": models.MaxMemories,
					"items":    bson.M{"bsonType": "string", "maxLength": models.MaxMemoryLength},
				},
			},
		},
		"created_at": bson.M{"bsonType": "date"},
	},
}

// EnsureSchema installs the collection validator and the secondary indexes
func (r *MongoGreetingRepository) EnsureSchema(ctx context.Context) error {
	db := r.coll.Database()
	validator := bson.M{"$jsonSchema": greetingSchema}

	names, err := db.ListCollectionNames(ctx, bson.M{"name": greetingsCollection})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) == 0 {
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, greetingsCollection, opts); err != nil {
			return fmt.Errorf("failed to create greetings collection: %w", err)
		}
	} else {
		cmd := bson.D{{Key: "collMod", Value: greetingsCollection}, {Key: "validator", Value: validator}}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("failed to update greetings validator: %w", err)
		}
	}

	_, err = r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("created_desc"),
	})
	if err != nil {
		return fmt.Errorf("failed to create greeting indexes: %w", err)
	}
	return nil
}

// Create inserts a greeting document
func (r *MongoGreetingRepository) Create(ctx context.Context, g *models.Greeting) error {
	// BSON dates carry millisecond precision
	g.CreatedAt = r.now().UTC().Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, g); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrGreetingExists
		}
		if isValidationFailure(err) {
			return fmt.Errorf("%w: %v", ErrGreetingInvalid, err)
		}
		return fmt.Errorf("failed to insert greeting: %w", err)
	}
	return nil
}

// GetByID retrieves a greeting by its identifier
func (r *MongoGreetingRepository) GetByID(ctx context.Context, id string) (*models.Greeting, error) {
	var g models.Greeting
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrGreetingNotFound
		}
		return nil, fmt.Errorf("failed to query greeting: %w", err)
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}

// HealthCheck pings the primary
func (r *MongoGreetingRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client
func (r *MongoGreetingRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func isValidationFailure(err error) bool {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return false
	}
	for _, e := range we.WriteErrors {
		if e.Code == mongoDocumentValidationFailure {
			return true
		}
	}
	return false
}
