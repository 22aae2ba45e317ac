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

const (
	messagesCollection = "messages"
	countersCollection = "counters"
	messageSequence    = "messages"
)

// MessageRepository implements ports.MessageRepository. Ids come from a
// counters document incremented atomically per insert.
type MessageRepository struct {
	messages *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		messages: db.Collection(messagesCollection),
		counters: db.Collection(countersCollection),
	}
}

type messageDoc struct {
	ID           int64      `bson:"_id"`
	FromUsername string     `bson:"from_username"`
	ToUsername   string     `bson:"to_username"`
	Body         string     `bson:"body"`
	SentAt       time.Time  `bson:"sent_at"`
	ReadAt       *time.Time `bson:"read_at"`
}

func (d *messageDoc) toDomain() *domain.Message {
	m := &domain.Message{
		ID:           d.ID,
		FromUsername: d.FromUsername,
		ToUsername:   d.ToUsername,
		Body:         d.Body,
		SentAt:       d.SentAt.UTC(),
	}
	if d.ReadAt != nil {
		t := d.ReadAt.UTC()
		m.ReadAt = &t
	}
	return m
}

type partyDoc struct {
	FirstName string `bson:"first_name"`
	LastName  string `bson:"last_name"`
	Phone     string `bson:"phone"`
}

type detailDoc struct {
	Message messageDoc `bson:",inline"`
	From    partyDoc   `bson:"from_user"`
	To      partyDoc   `bson:"to_user"`
}

func (d *detailDoc) toDomain() domain.MessageDetail {
	m := d.Message.toDomain()
	return domain.MessageDetail{
		Message: *m,
		From: domain.UserContact{
			Username:  m.FromUsername,
			FirstName: d.From.FirstName,
			LastName:  d.From.LastName,
			Phone:     d.From.Phone,
		},
		To: domain.UserContact{
			Username:  m.ToUsername,
			FirstName: d.To.FirstName,
			LastName:  d.To.LastName,
			Phone:     d.To.Phone,
		},
	}
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := messageDoc{
		ID:           id,
		FromUsername: msg.FromUsername,
		ToUsername:   msg.ToUsername,
		Body:         msg.Body,
		SentAt:       msg.SentAt,
	}
	if _, err := r.messages.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	created := *msg
	created.ID = id
	created.ReadAt = nil
	return &created, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.MessageDetail, error) {
	details, err := r.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, domain.ErrMessageNotFound
	}
	return &details[0], nil
}

func (r *MessageRepository) ListSentBy(ctx context.Context, username string) ([]domain.MessageDetail, error) {
	return r.aggregate(ctx, bson.M{"from_username": username})
}

func (r *MessageRepository) ListReceivedBy(ctx context.Context, username string) ([]domain.MessageDetail, error) {
	return r.aggregate(ctx, bson.M{"to_username": username})
}

// MarkRead sets read_at only on a document whose read_at is still null.
// A miss is followed by a plain read to tell "unknown" from "already read".
func (r *MessageRepository) MarkRead(ctx context.Context, id int64, at time.Time) (*domain.Message, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc messageDoc
	err := r.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "read_at": nil},
		mongo.Pipeline{{{Key: "$set", Value: bson.D{
			{Key: "read_at", Value: bson.D{{Key: "$max", Value: bson.A{at, "$sent_at"}}}},
		}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain(), true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("mark message read: %w", err)
	}

	if err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, domain.ErrMessageNotFound
		}
		return nil, false, fmt.Errorf("reload message: %w", err)
	}
	return doc.toDomain(), false, nil
}

// EnsureIndexes creates the indexes the inbox and outbox queries rely on.
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "from_username", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "to_username", Value: 1}, {Key: "_id", Value: 1}}},
	}

	_, err := r.messages.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *MessageRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next message id: %w", err)
	}
	return counter.Seq, nil
}

func (r *MessageRepository) aggregate(ctx context.Context, match bson.M) ([]domain.MessageDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		lookupParty("from_username", "from_user"),
		{{Key: "$unwind", Value: "$from_user"}},
		lookupParty("to_username", "to_user"),
		{{Key: "$unwind", Value: "$to_user"}},
	}

	cur, err := r.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate messages: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.MessageDetail, 0)
	for cur.Next(ctx) {
		var doc detailDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func lookupParty(localField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: usersCollection},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: as},
	}}}
}
