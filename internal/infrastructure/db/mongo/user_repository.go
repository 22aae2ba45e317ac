package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/messagely/messagely/internal/core/domain"
)

const usersCollection = "users"

// UserRepository implements ports.UserRepository. The username is the
// document _id, so uniqueness comes from the primary index.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type userDoc struct {
	Username     string     `bson:"_id"`
	PasswordHash string     `bson:"password"`
	FirstName    string     `bson:"first_name"`
	LastName     string     `bson:"last_name"`
	Phone        string     `bson:"phone"`
	JoinedAt     time.Time  `bson:"join_at"`
	LastLoginAt  *time.Time `bson:"last_login_at"`
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Phone:        d.Phone,
		JoinedAt:     d.JoinedAt.UTC(),
	}
	if d.LastLoginAt != nil {
		u.LastLoginAt = d.LastLoginAt.UTC()
	}
	return u
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	lastLogin := user.LastLoginAt
	doc := userDoc{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Phone:        user.Phone,
		JoinedAt:     user.JoinedAt,
		LastLoginAt:  &lastLogin,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created := *user
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, username string, at time.Time) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"last_login_at": 1})

	var doc struct {
		LastLoginAt time.Time `bson:"last_login_at"`
	}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": username},
		bson.M{"$set": bson.M{"last_login_at": at}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, domain.ErrUserNotFound
		}
		return time.Time{}, fmt.Errorf("touch last login: %w", err)
	}
	return doc.LastLoginAt.UTC(), nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]domain.UserSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"first_name": 1, "last_name": 1})

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	users := make([]domain.UserSummary, 0)
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, domain.UserSummary{
			Username:  doc.Username,
			FirstName: doc.FirstName,
			LastName:  doc.LastName,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
