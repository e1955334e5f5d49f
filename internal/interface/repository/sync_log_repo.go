package repository

import (
	"context"
	"errors"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncLogRepository implements SyncLogRepository
type MongoSyncLogRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncLogRepository creates a new sync log repository
func NewMongoSyncLogRepository(db *mongo.Database) repository.SyncLogRepository {
	collection := db.Collection("sync_logs")

	// Create unique index on runKey
	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"runKey": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	// Create index on configId + startedAt for listings
	listIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "configId", Value: 1}, {Key: "startedAt", Value: -1}},
	}
	collection.Indexes().CreateOne(ctx, listIndex)

	return &MongoSyncLogRepository{
		collection: collection,
	}
}

// Create opens a new log document for a run
func (r *MongoSyncLogRepository) Create(ctx context.Context, log *entity.SyncLog) error {
	now := time.Now()
	if log.ID == "" {
		log.ID = primitive.NewObjectID().Hex()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, log)
	return err
}

// Update rewrites the log document. The filter excludes terminal statuses,
// so a finished run can never be reopened or mutated; a new run must create
// a new log.
func (r *MongoSyncLogRepository) Update(ctx context.Context, log *entity.SyncLog) error {
	log.UpdatedAt = time.Now()

	updateDoc := bson.M{
		"status":           log.Status,
		"totalItems":       log.TotalItems,
		"processedItems":   log.ProcessedItems,
		"successItems":     log.SuccessItems,
		"errorItems":       log.ErrorItems,
		"skippedItems":     log.SkippedItems,
		"changesMade":      log.ChangesMade,
		"conflicts":        log.Conflicts,
		"errorCode":        log.ErrorCode,
		"errorMessage":     log.ErrorMessage,
		"retryCount":       log.RetryCount,
		"apiCallCount":     log.APICallCount,
		"bytesTransferred": log.BytesTransferred,
		"completedAt":      log.CompletedAt,
		"durationMs":       log.DurationMs,
		"updatedAt":        log.UpdatedAt,
	}

	filter := bson.M{
		"_id":    log.ID,
		"status": bson.M{"$nin": entity.TerminalSyncStatuses()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": updateDoc})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return entity.ErrSyncLogFinalized
	}
	return nil
}

// FindByID loads one log
func (r *MongoSyncLogRepository) FindByID(ctx context.Context, id string) (*entity.SyncLog, error) {
	var log entity.SyncLog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// List returns logs matching the filter, most recent first
func (r *MongoSyncLogRepository) List(ctx context.Context, filter repository.SyncLogFilter) ([]*entity.SyncLog, error) {
	query := bson.M{}
	if filter.ConfigID != 0 {
		query["configId"] = filter.ConfigID
	}
	if filter.TenantID != "" {
		query["tenantId"] = filter.TenantID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.StartedAfter != nil || filter.StartedBefore != nil {
		started := bson.M{}
		if filter.StartedAfter != nil {
			started["$gte"] = *filter.StartedAfter
		}
		if filter.StartedBefore != nil {
			started["$lte"] = *filter.StartedBefore
		}
		query["startedAt"] = started
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*entity.SyncLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
