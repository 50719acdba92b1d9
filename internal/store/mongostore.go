package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dusk-indust/userbridge/internal/user"
)

// Compile-time assertion: *MongoStore satisfies Store.
var _ Store = (*MongoStore)(nil)

// MongoStore persists users as documents in a MongoDB collection. The storage
// handle is the hex form of the document's ObjectID.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoUser is the document shape of a stored user.
type mongoUser struct {
	ObjectID       primitive.ObjectID   `bson:"_id"`
	UserID         string               `bson:"userId"`
	Name           string               `bson:"name,omitempty"`
	Username       string               `bson:"username,omitempty"`
	Email          string               `bson:"email,omitempty"`
	Phone          string               `bson:"phone,omitempty"`
	Website        string               `bson:"website,omitempty"`
	Address        *user.Address        `bson:"address,omitempty"`
	Company        *user.Company        `bson:"company,omitempty"`
	AdditionalInfo *user.AdditionalInfo `bson:"additionalInfo,omitempty"`
}

func (d mongoUser) toUser() user.User {
	return user.User{
		ID:             d.UserID,
		Name:           d.Name,
		Username:       d.Username,
		Email:          d.Email,
		Phone:          d.Phone,
		Website:        d.Website,
		Address:        d.Address,
		Company:        d.Company,
		AdditionalInfo: d.AdditionalInfo,
		Handle:         d.ObjectID.Hex(),
	}
}

// OpenMongo connects to uri and returns a store over database.collection.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	if _, err := coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "_id", Value: 1}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ensure userId index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// FindByID returns the earliest inserted record with the given user id.
func (s *MongoStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	var doc mongoUser
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "userId", Value: id}},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: find user %q: %w", id, err)
	}
	u := doc.toUser()
	return &u, nil
}

// List returns every record ordered by ObjectID, which follows insertion order.
func (s *MongoStore) List(ctx context.Context) ([]user.User, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode users: %w", err)
	}

	users := make([]user.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toUser())
	}
	return users, nil
}

// Count returns the number of stored documents.
func (s *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo: count users: %w", err)
	}
	return int(n), nil
}

// Upsert replaces the document with u's handle, inserting it when absent.
func (s *MongoStore) Upsert(ctx context.Context, u *user.User) error {
	oid := primitive.NewObjectID()
	if u.Handle != "" {
		parsed, err := primitive.ObjectIDFromHex(u.Handle)
		if err != nil {
			return fmt.Errorf("mongo: upsert user %q: invalid handle %q: %w", u.ID, u.Handle, err)
		}
		oid = parsed
	}

	doc := mongoUser{
		ObjectID:       oid,
		UserID:         u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		Phone:          u.Phone,
		Website:        u.Website,
		Address:        u.Address,
		Company:        u.Company,
		AdditionalInfo: u.AdditionalInfo,
	}
	if _, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		doc,
		options.Replace().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("mongo: upsert user %q: %w", u.ID, err)
	}
	u.Handle = oid.Hex()
	return nil
}
