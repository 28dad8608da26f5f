package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"alumni-server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// MongoUserStore persists users in a MongoDB collection.
//
// With transactions enabled AcceptPending updates both records in one
// multi-document transaction, which needs a replica set. Without them the two
// writes are issued in order and a failure in between leaves the recipient
// connected while the requester is not.
type MongoUserStore struct {
	client       *mongo.Client
	collection   *mongo.Collection
	transactions bool
}

func NewMongoUserStore(ctx context.Context, client *mongo.Client, database string, transactions bool) (*MongoUserStore, error) {
	collection := client.Database(database).Collection(usersCollection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("mongo: creating unique index on users.email: %w", err)
	}

	return &MongoUserStore{
		client:       client,
		collection:   collection,
		transactions: transactions,
	}, nil
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	doc := cloneUser(user)
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("mongo: inserting user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("mongo: finding user: %w", err)
	}
	user.Normalize()
	return &user, nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo: querying users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongo: decoding users: %w", err)
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}

func (s *MongoUserStore) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	found, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	users := make([]models.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *MongoUserStore) SearchByName(ctx context.Context, query string) ([]models.User, error) {
	return s.find(ctx, nameFilter(query))
}

// nameFilter quotes query so it is matched literally.
func nameFilter(query string) bson.M {
	return bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
}

func (s *MongoUserStore) List(ctx context.Context) ([]models.User, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoUserStore) exists(ctx context.Context, id string) (bool, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: counting users: %w", err)
	}
	return n > 0, nil
}

func (s *MongoUserStore) AddPending(ctx context.Context, recipientID, requesterID string) error {
	filter := bson.M{
		"_id":                 recipientID,
		"pending_connections": bson.M{"$ne": requesterID},
		"connections":         bson.M{"$ne": requesterID},
	}
	update := bson.M{"$addToSet": bson.M{"pending_connections": requesterID}}

	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongo: adding pending request: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	ok, err := s.exists(ctx, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return ErrAlreadyRequested
}

func (s *MongoUserStore) AcceptPending(ctx context.Context, recipientID, requesterID string) error {
	if !s.transactions {
		return s.acceptPending(ctx, recipientID, requesterID)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: starting session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, s.acceptPending(sessCtx, recipientID, requesterID)
	})
	return err
}

func (s *MongoUserStore) acceptPending(ctx context.Context, recipientID, requesterID string) error {
	ok, err := s.exists(ctx, requesterID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}

	// The pending entry is part of the filter so only one concurrent accept matches.
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": recipientID, "pending_connections": requesterID},
		bson.M{
			"$pull":     bson.M{"pending_connections": requesterID},
			"$addToSet": bson.M{"connections": requesterID},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo: accepting request on recipient: %w", err)
	}
	if res.MatchedCount == 0 {
		ok, err := s.exists(ctx, recipientID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}
		return ErrNotPending
	}

	// A crossed request in the other direction is settled by this accept as well.
	res, err = s.collection.UpdateOne(ctx,
		bson.M{"_id": requesterID},
		bson.M{
			"$pull":     bson.M{"pending_connections": recipientID},
			"$addToSet": bson.M{"connections": recipientID},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo: accepting request on requester: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoUserStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}
