package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"memorymount/entity"
	"memorymount/internal/config"
)

const (
	collectionUsers = "users"
	collectionCodes = "memory_codes"
)

// MongoDB is the record store behind the account and memory-code
// managers. The driver client is dialed lazily on first use and
// reused for the life of the process; the driver's own pool handles
// concurrent requests.
type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string

	mu     sync.Mutex
	client *mongo.Client
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client, nil
	}
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	m.client = connection
	return m.client, nil
}

func (m *MongoDB) collection(name string) (*mongo.Collection, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	return connection.Database(m.database).Collection(name), nil
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// notDeleted excludes soft-deleted accounts from a user query.
func notDeleted(filter bson.D) bson.D {
	return append(filter, bson.E{Key: "deleted_at", Value: bson.D{{Key: "$exists", Value: false}}})
}

// EnsureIndexes creates the uniqueness guards the write paths rely
// on: redemption tokens are globally unique, and an email belongs to
// at most one account. Idempotent; called once at startup.
func (m *MongoDB) EnsureIndexes() error {
	codes, err := m.collection(collectionCodes)
	if err != nil {
		return err
	}
	_, err = codes.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("codes index: %w", err)
	}

	users, err := m.collection(collectionUsers)
	if err != nil {
		return err
	}
	_, err = users.Indexes().CreateOne(m.ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	return nil
}

func (m *MongoDB) CreateUser(user *entity.User) error {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return err
	}
	_, err = collection.InsertOne(m.ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrDuplicateEmail
	}
	return err
}

func (m *MongoDB) UserByEmail(email string) (*entity.User, error) {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return nil, err
	}
	filter := notDeleted(bson.D{{Key: "email", Value: email}})
	var user entity.User
	if err = collection.FindOne(m.ctx, filter).Decode(&user); err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

func (m *MongoDB) UserById(id string) (*entity.User, error) {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return nil, err
	}
	var user entity.User
	if err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user); err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

func (m *MongoDB) AllUsers() ([]*entity.User, error) {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := collection.Find(m.ctx, notDeleted(bson.D{}), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var users []*entity.User
	if err = cursor.All(m.ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *MongoDB) UpdateUser(user *entity.User) error {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return err
	}
	filter := bson.D{{Key: "_id", Value: user.Id}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: user.Name},
		{Key: "role", Value: user.Role},
		{Key: "is_verified", Value: user.IsVerified},
	}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) SetUserPassword(id, hash string) error {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return err
	}
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "password", Value: hash}}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) SetUserDeleted(id string, deleted bool) error {
	collection, err := m.collection(collectionUsers)
	if err != nil {
		return err
	}
	filter := bson.D{{Key: "_id", Value: id}}
	var update bson.D
	if deleted {
		update = bson.D{{Key: "$set", Value: bson.D{{Key: "deleted_at", Value: time.Now()}}}}
	} else {
		update = bson.D{{Key: "$unset", Value: bson.D{{Key: "deleted_at", Value: ""}}}}
	}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// CreateCode inserts one minted code. The unique index on the token
// turns a collision into entity.ErrDuplicateCode so the caller can
// re-roll.
func (m *MongoDB) CreateCode(code *entity.MemoryCode) error {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return err
	}
	_, err = collection.InsertOne(m.ctx, code)
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrDuplicateCode
	}
	return err
}

func (m *MongoDB) CodeById(id string) (*entity.MemoryCode, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return nil, err
	}
	var code entity.MemoryCode
	if err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: id}}).Decode(&code); err != nil {
		return nil, m.findError(err)
	}
	return &code, nil
}

func (m *MongoDB) CodeByCode(code string) (*entity.MemoryCode, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return nil, err
	}
	var record entity.MemoryCode
	if err = collection.FindOne(m.ctx, bson.D{{Key: "code", Value: code}}).Decode(&record); err != nil {
		return nil, m.findError(err)
	}
	return &record, nil
}

// OldestUnassignedCode returns the oldest minted code that is neither
// assigned to a product nor claimed.
func (m *MongoDB) OldestUnassignedCode() (*entity.MemoryCode, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return nil, err
	}
	filter := bson.D{
		{Key: "assigned_at", Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: "user_id", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	var code entity.MemoryCode
	if err = collection.FindOne(m.ctx, filter, opts).Decode(&code); err != nil {
		return nil, m.findError(err)
	}
	return &code, nil
}

// AssignCode marks a code as affixed to a product. The filter encodes
// the expected state, so two concurrent assigns cannot both land:
// only the write that still sees an unassigned, unclaimed code
// matches. Returns false when the guard missed.
func (m *MongoDB) AssignCode(id string, at time.Time) (bool, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return false, err
	}
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "assigned_at", Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: "user_id", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "assigned_at", Value: at}}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// ClaimCode binds a code to a user. Guarded the same way as
// AssignCode: the update matches only while no user_id is set.
func (m *MongoDB) ClaimCode(id, userId string, at time.Time) (bool, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return false, err
	}
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "user_id", Value: userId},
		{Key: "used_at", Value: at},
	}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// SetCodeName stores a display name; only the claiming owner matches.
func (m *MongoDB) SetCodeName(id, userId, name string) (bool, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return false, err
	}
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userId},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: name}}}}
	result, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

// CodeOwnership projects only the claim fields of a code record.
func (m *MongoDB) CodeOwnership(id string) (*entity.MemoryCode, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return nil, err
	}
	opts := options.FindOne().SetProjection(bson.D{
		{Key: "user_id", Value: 1},
		{Key: "used_at", Value: 1},
	})
	var code entity.MemoryCode
	if err = collection.FindOne(m.ctx, bson.D{{Key: "_id", Value: id}}, opts).Decode(&code); err != nil {
		return nil, m.findError(err)
	}
	return &code, nil
}

func (m *MongoDB) CodeStats() (*entity.CodeStats, error) {
	collection, err := m.collection(collectionCodes)
	if err != nil {
		return nil, err
	}
	total, err := collection.CountDocuments(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	assigned, err := collection.CountDocuments(m.ctx, bson.D{
		{Key: "assigned_at", Value: bson.D{{Key: "$exists", Value: true}}},
	})
	if err != nil {
		return nil, err
	}
	claimed, err := collection.CountDocuments(m.ctx, bson.D{
		{Key: "user_id", Value: bson.D{{Key: "$exists", Value: true}}},
	})
	if err != nil {
		return nil, err
	}
	available, err := collection.CountDocuments(m.ctx, bson.D{
		{Key: "assigned_at", Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: "user_id", Value: bson.D{{Key: "$exists", Value: false}}},
	})
	if err != nil {
		return nil, err
	}
	return &entity.CodeStats{
		Total:     total,
		Assigned:  assigned,
		Claimed:   claimed,
		Available: available,
	}, nil
}
