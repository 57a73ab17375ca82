package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	model "github.com/jlynch25/eventreg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	userCollection  = "user"
	eventCollection = "event"
)

// MongoStore is the MongoDB backed Store.
type MongoStore struct {
	client       *mongo.Client
	userdb       *mongo.Collection
	eventdb      *mongo.Collection
	transactions bool
	log          *zap.Logger
}

// Connect dials uri, verifies the connection and prepares the indexes the
// store relies on.
func Connect(ctx context.Context, uri, database string, transactions bool, log *zap.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("could not reach mongodb: %w", err)
	}

	s := NewMongoStore(client.Database(database), transactions, log)
	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info("connected to mongodb",
		zap.String("database", database),
		zap.Bool("transactions", transactions))
	return s, nil
}

// NewMongoStore wraps an already connected database.
func NewMongoStore(db *mongo.Database, transactions bool, log *zap.Logger) *MongoStore {
	return &MongoStore{
		client:       db.Client(),
		userdb:       db.Collection(userCollection),
		eventdb:      db.Collection(eventCollection),
		transactions: transactions,
		log:          log,
	}
}

// EnsureIndexes creates the unique email index on the user collection.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.userdb.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	// $push fails on a null field, so the list is always stored as an array
	if user.RegisteredEvents == nil {
		user.RegisteredEvents = []primitive.ObjectID{}
	}
	if _, err := s.userdb.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %q: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) FindUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	data := model.User{}
	if err := s.userdb.FindOne(ctx, bson.M{"_id": id}).Decode(&data); err != nil {
		return nil, notFound(err, "user", id.Hex())
	}
	return &data, nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	data := model.User{}
	if err := s.userdb.FindOne(ctx, bson.M{"email": email}).Decode(&data); err != nil {
		return nil, notFound(err, "user", email)
	}
	return &data, nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]model.User, error) {
	cursor, err := s.userdb.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var users []model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) CreateEvent(ctx context.Context, event *model.Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Participants == nil {
		event.Participants = []primitive.ObjectID{}
	}
	if _, err := s.eventdb.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *MongoStore) FindEvent(ctx context.Context, id primitive.ObjectID) (*model.Event, error) {
	data := model.Event{}
	if err := s.eventdb.FindOne(ctx, bson.M{"_id": id}).Decode(&data); err != nil {
		return nil, notFound(err, "event", id.Hex())
	}
	return &data, nil
}

func (s *MongoStore) FindEvents(ctx context.Context, ids []primitive.ObjectID) ([]model.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.eventdb.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	var events []model.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func (s *MongoStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	cursor, err := s.eventdb.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []model.Event{}
	for cursor.Next(ctx) {
		data := model.Event{}
		if err := cursor.Decode(&data); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, data)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("event cursor: %w", err)
	}
	return events, nil
}

func (s *MongoStore) PushRegisteredEvent(ctx context.Context, userID, eventID primitive.ObjectID) error {
	return s.pushRef(ctx, s.userdb, userID, "registeredEvents", eventID)
}

func (s *MongoStore) PushParticipant(ctx context.Context, eventID, userID primitive.ObjectID) error {
	return s.pushRef(ctx, s.eventdb, eventID, "participants", userID)
}

// pushRef appends ref to the array field of document id unless it is
// already there. The $ne guard makes the check and the append one atomic
// document update.
func (s *MongoStore) pushRef(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, field string, ref primitive.ObjectID) error {
	filter := bson.M{"_id": id, field: bson.M{"$ne": ref}}
	update := bson.M{"$push": bson.M{field: ref}}

	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update %s.%s: %w", coll.Name(), field, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", coll.Name(), id.Hex(), ErrNotFound)
	}
	return fmt.Errorf("%s %s already holds %s: %w", coll.Name(), id.Hex(), ref.Hex(), ErrDuplicate)
}

func (s *MongoStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func notFound(err error, kind, key string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
	}
	return fmt.Errorf("find %s %s: %w", kind, key, err)
}
