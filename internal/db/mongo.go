package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/wuwenbin0122/campus-accounts/internal/models"
	"github.com/wuwenbin0122/campus-accounts/internal/utils"
)

const (
	usersCollection   = "UserInfo"
	usernameIndexName = "username_unique"
	defaultDatabase   = "test"
)

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	Users    *mongo.Collection
}

func NewMongo(ctx context.Context, cfg utils.MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}

	database, err := databaseName(cfg)
	if err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := client.Database(database)
	return &Mongo{
		Client:   client,
		Database: db,
		Users:    db.Collection(usersCollection),
	}, nil
}

// databaseName prefers the configured database, then the one named in the
// connection string.
func databaseName(cfg utils.MongoConfig) (string, error) {
	if cfg.Database != "" {
		return cfg.Database, nil
	}

	cs, err := connstring.ParseAndValidate(cfg.URI)
	if err != nil {
		return "", fmt.Errorf("mongo: parse uri: %w", err)
	}
	if cs.Database != "" {
		return cs.Database, nil
	}

	return defaultDatabase, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return m.Client.Disconnect(ctx)
}

// EnsureCollections creates the username index. Documents without a username
// are left out of the index so they never collide with each other.
func (m *Mongo) EnsureCollections(ctx context.Context) error {
	if m == nil || m.Database == nil {
		return fmt.Errorf("mongo: database not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetName(usernameIndexName).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"username": bson.M{"$exists": true}}),
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure username index: %w", err)
	}

	return nil
}

// MongoUsers is the document-store UserStore backed by the UserInfo collection.
type MongoUsers struct {
	coll *mongo.Collection
}

func NewMongoUsers(m *Mongo) *MongoUsers {
	return &MongoUsers{coll: m.Users}
}

type userDocument struct {
	ID         string    `bson:"_id"`
	Username   string    `bson:"username,omitempty"`
	Password   string    `bson:"password"`
	FirstName  string    `bson:"firstName"`
	LastName   string    `bson:"lastName"`
	Email      string    `bson:"email"`
	IDNumber   string    `bson:"idNumber"`
	Birthday   string    `bson:"birthday"`
	Role       string    `bson:"role,omitempty"`
	Program    string    `bson:"program,omitempty"`
	Department string    `bson:"department,omitempty"`
	Interests  []string  `bson:"interests"`
	MBTIType   string    `bson:"mbtiType,omitempty"`
	Fullname   *string   `bson:"fullname,omitempty"`
	Bio        *string   `bson:"bio,omitempty"`
	Address    *string   `bson:"address,omitempty"`
	Pronouns   *string   `bson:"pronouns,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func documentFromUser(u *models.User) userDocument {
	interests := u.Interests
	if interests == nil {
		interests = []string{}
	}

	return userDocument{
		ID:         u.ID,
		Username:   u.Username,
		Password:   u.PasswordHash,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		IDNumber:   u.IDNumber,
		Birthday:   u.Birthday,
		Role:       string(u.Affiliation.Role()),
		Program:    u.Affiliation.Program(),
		Department: u.Affiliation.Department(),
		Interests:  interests,
		MBTIType:   u.MBTIType,
		Fullname:   u.Fullname,
		Bio:        u.Bio,
		Address:    u.Address,
		Pronouns:   u.Pronouns,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (d userDocument) toUser() *models.User {
	affiliation, _ := models.AffiliationFromFields(models.Role(d.Role), d.Program, d.Department)

	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.Password,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		IDNumber:     d.IDNumber,
		Birthday:     d.Birthday,
		Affiliation:  affiliation,
		Interests:    d.Interests,
		MBTIType:     d.MBTIType,
		Fullname:     d.Fullname,
		Bio:          d.Bio,
		Address:      d.Address,
		Pronouns:     d.Pronouns,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (s *MongoUsers) Create(ctx context.Context, user *models.User) error {
	if _, err := s.coll.InsertOne(ctx, documentFromUser(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("mongo: insert user: %w", err)
	}
	return nil
}

func (s *MongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}

	var doc userDocument
	if err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("mongo: find user: %w", err)
	}

	return doc.toUser(), nil
}

func (s *MongoUsers) Save(ctx context.Context, user *models.User) error {
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}

	result, err := s.coll.UpdateOne(ctx, idFilter(user.ID), bson.M{
		"$set": bson.M{
			"interests": interests,
			"mbtiType":  user.MBTIType,
			"updatedAt": user.UpdatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: save user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

// idFilter matches a record by its decoded id. Records written before ids were
// generated here carry an ObjectID, which decodes to its hex form.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// MissingUsernames lists records stored without a login username, newest first.
func (s *MongoUsers) MissingUsernames(ctx context.Context, limit int64) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.coll.Find(ctx, bson.M{"username": bson.M{"$exists": false}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find users without username: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode user: %w", err)
		}
		users = append(users, doc.toUser().Sanitize())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterate users: %w", err)
	}

	return users, nil
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return 10 * time.Second
}
