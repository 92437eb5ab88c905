package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrEntryNotFound covers both a missing entry and an entry owned by someone else.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrStoreUnavailable wraps failures to reach the document store.
	ErrStoreUnavailable = errors.New("entry store unavailable")
)

// EntryStore performs entry operations. Every operation is scoped by owner; there is
// no way to address an entry without the owner term in the filter.
type EntryStore interface {
	Insert(ctx context.Context, owner string, fields models.EntryFields, at time.Time) (*models.Entry, error)
	FindAllByOwner(ctx context.Context, owner string) ([]models.Entry, error)
	FindOneByIDAndOwner(ctx context.Context, id primitive.ObjectID, owner string) (*models.Entry, error)
	// UpdateByIDAndOwner returns the matched count (0 or 1).
	UpdateByIDAndOwner(ctx context.Context, id primitive.ObjectID, owner string, fields models.EntryFields, at time.Time) (int64, error)
	// DeleteByIDAndOwner returns the deleted count (0 or 1).
	DeleteByIDAndOwner(ctx context.Context, id primitive.ObjectID, owner string) (int64, error)
}

// CollectionProvider yields the entries collection, connecting lazily.
type CollectionProvider interface {
	Collection(ctx context.Context) (*mongo.Collection, error)
}

// FieldCipher encrypts entry text fields at rest.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

const storeTimeout = 5 * time.Second

// MongoEntryStore is the MongoDB EntryStore.
type MongoEntryStore struct {
	provider CollectionProvider
	cipher   FieldCipher
}

// NewMongoEntryStore returns a store over provider. cipher may be nil for plaintext storage.
func NewMongoEntryStore(provider CollectionProvider, cipher FieldCipher) *MongoEntryStore {
	return &MongoEntryStore{provider: provider, cipher: cipher}
}

func ownerFilter(owner string) bson.M {
	return bson.M{"userEmail": owner}
}

func ownedEntryFilter(id primitive.ObjectID, owner string) bson.M {
	return bson.M{"_id": id, "userEmail": owner}
}

func (s *MongoEntryStore) collection(ctx context.Context) (*mongo.Collection, error) {
	coll, err := s.provider.Collection(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return coll, nil
}

func (s *MongoEntryStore) Insert(ctx context.Context, owner string, fields models.EntryFields, at time.Time) (*models.Entry, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	entry := models.Entry{
		ID:        primitive.NewObjectID(),
		UserEmail: owner,
		Title:     fields.Title,
		Content:   fields.Content,
		Mood:      fields.Mood,
		CreatedAt: at,
	}
	doc, err := s.seal(entry)
	if err != nil {
		return nil, err
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &entry, nil
}

func (s *MongoEntryStore) FindAllByOwner(ctx context.Context, owner string) ([]models.Entry, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, ownerFilter(owner))
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]models.Entry, 0)
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	for i := range entries {
		if entries[i], err = s.open(entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *MongoEntryStore) FindOneByIDAndOwner(ctx context.Context, id primitive.ObjectID, owner string) (*models.Entry, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	var entry models.Entry
	err = coll.FindOne(ctx, ownedEntryFilter(id, owner)).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}

	entry, err = s.open(entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *MongoEntryStore) UpdateByIDAndOwner(ctx context.Context, id primitive.ObjectID, owner string, fields models.EntryFields, at time.Time) (int64, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sealed, err := s.seal(models.Entry{Title: fields.Title, Content: fields.Content, Mood: fields.Mood})
	if err != nil {
		return 0, err
	}

	result, err := coll.UpdateOne(ctx, ownedEntryFilter(id, owner), bson.M{
		"$set": bson.M{
			"title":     sealed.Title,
			"content":   sealed.Content,
			"mood":      sealed.Mood,
			"updatedAt": at,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("update entry: %w", err)
	}
	return result.MatchedCount, nil
}

func (s *MongoEntryStore) DeleteByIDAndOwner(ctx context.Context, id primitive.ObjectID, owner string) (int64, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	result, err := coll.DeleteOne(ctx, ownedEntryFilter(id, owner))
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	return result.DeletedCount, nil
}

// seal encrypts the text fields of e. Owner, id and timestamps stay plaintext
// because every filter depends on them.
func (s *MongoEntryStore) seal(e models.Entry) (models.Entry, error) {
	if s.cipher == nil {
		return e, nil
	}
	var err error
	if e.Title, err = s.cipher.Encrypt(e.Title); err != nil {
		return e, fmt.Errorf("encrypt title: %w", err)
	}
	if e.Content, err = s.cipher.Encrypt(e.Content); err != nil {
		return e, fmt.Errorf("encrypt content: %w", err)
	}
	if e.Mood != nil {
		mood, err := s.cipher.Encrypt(*e.Mood)
		if err != nil {
			return e, fmt.Errorf("encrypt mood: %w", err)
		}
		e.Mood = &mood
	}
	return e, nil
}

func (s *MongoEntryStore) open(e models.Entry) (models.Entry, error) {
	if s.cipher == nil {
		return e, nil
	}
	var err error
	if e.Title, err = s.cipher.Decrypt(e.Title); err != nil {
		return e, fmt.Errorf("decrypt title: %w", err)
	}
	if e.Content, err = s.cipher.Decrypt(e.Content); err != nil {
		return e, fmt.Errorf("decrypt content: %w", err)
	}
	if e.Mood != nil {
		mood, err := s.cipher.Decrypt(*e.Mood)
		if err != nil {
			return e, fmt.Errorf("decrypt mood: %w", err)
		}
		e.Mood = &mood
	}
	return e, nil
}
