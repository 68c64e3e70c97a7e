package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	taskDomain "github.com/davicafu/tallerlab/internal/task/domain"
)

// TaskRepoMongoDB implementa la interfaz TaskRepository para MongoDB.
type TaskRepoMongoDB struct {
	client    *mongo.Client
	dbName    string
	tasksColl *mongo.Collection
}

func NewTaskRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*TaskRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &TaskRepoMongoDB{
		client:    client,
		dbName:    dbName,
		tasksColl: db.Collection("tasks"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoTask struct {
	ID                 uuid.UUID             `bson:"_id"`
	ExecutionID        uuid.UUID             `bson:"executionId"`
	Description        string                `bson:"description"`
	Status             taskDomain.TaskStatus `bson:"status"`
	AssignedMechanicID *int64                `bson:"assignedMechanicId,omitempty"`
	StartedAt          *time.Time            `bson:"startedAt,omitempty"`
	CompletedAt        *time.Time            `bson:"completedAt,omitempty"`
	CreatedAt          time.Time             `bson:"createdAt"`
	UpdatedAt          time.Time             `bson:"updatedAt"`
}

// --- CRUD ---

func (r *TaskRepoMongoDB) Create(ctx context.Context, t *taskDomain.Task) error {
	_, err := r.tasksColl.InsertOne(ctx, toMongoTask(t))
	return err
}

func (r *TaskRepoMongoDB) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	var mt mongoTask
	err := r.tasksColl.FindOne(ctx, bson.M{"_id": id}).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // ausencia, no error
		}
		return nil, err
	}
	return fromMongoTask(&mt), nil
}

func (r *TaskRepoMongoDB) FindByExecutionID(ctx context.Context, executionID uuid.UUID) ([]*taskDomain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.tasksColl.Find(ctx, bson.M{"executionId": executionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*taskDomain.Task
	for cursor.Next(ctx) {
		var mt mongoTask
		if err := cursor.Decode(&mt); err != nil {
			return nil, err
		}
		tasks = append(tasks, fromMongoTask(&mt))
	}

	return tasks, cursor.Err()
}

func (r *TaskRepoMongoDB) Update(ctx context.Context, t *taskDomain.Task) error {
	mt := toMongoTask(t)
	res, err := r.tasksColl.UpdateOne(ctx, bson.M{"_id": mt.ID}, bson.M{"$set": mt})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepoMongoDB) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.tasksColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}

// --- Helpers de mapeo ---

func toMongoTask(t *taskDomain.Task) *mongoTask {
	return &mongoTask{
		ID: t.ID, ExecutionID: t.ExecutionID, Description: t.Description,
		Status: t.Status, AssignedMechanicID: t.AssignedMechanicID,
		StartedAt: t.StartedAt, CompletedAt: t.CompletedAt,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func fromMongoTask(mt *mongoTask) *taskDomain.Task {
	return &taskDomain.Task{
		ID: mt.ID, ExecutionID: mt.ExecutionID, Description: mt.Description,
		Status: mt.Status, AssignedMechanicID: mt.AssignedMechanicID,
		StartedAt: mt.StartedAt, CompletedAt: mt.CompletedAt,
		CreatedAt: mt.CreatedAt, UpdatedAt: mt.UpdatedAt,
	}
}

var _ taskDomain.TaskRepository = (*TaskRepoMongoDB)(nil)
