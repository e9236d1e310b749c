package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "expenses"

// document keeps the query fields at the top level and the full expense
// nested beneath them.
type document struct {
	ID        string           `bson:"_id"`
	Version   int64            `bson:"version"`
	UserEmail string           `bson:"userEmail"`
	CreatedAt time.Time        `bson:"createdAt"`
	Expense   *expense.Expense `bson:"expense"`
}

func toDocument(e *expense.Expense) document {
	return document{
		ID:        e.ID,
		Version:   e.Version,
		UserEmail: internal.NormalizeEmail(e.User.Email),
		CreatedAt: e.CreatedAt,
		Expense:   e,
	}
}

func (d document) toExpense() *expense.Expense {
	e := d.Expense
	if e == nil {
		e = &expense.Expense{}
	}
	e.ID = d.ID
	e.Version = d.Version
	return e
}

// ExpenseRepository implements expense.Repository on a MongoDB collection,
// for deployments that keep expenses in a document store.
type ExpenseRepository struct {
	collection *mongo.Collection
}

func NewExpenseRepository(db *mongo.Database) expense.Repository {
	return &ExpenseRepository{collection: db.Collection(CollectionName)}
}

// EnsureIndexes creates the listing indexes. It is safe to call repeatedly.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	_, err := r.collection.InsertOne(ctx, toDocument(e))
	return err
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	var doc document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return doc.toExpense(), nil
}

func (r *ExpenseRepository) List(ctx context.Context, q expense.ListQuery) ([]*expense.Expense, error) {
	filter := bson.M{}
	if q.SubmitterEmail != "" {
		filter["userEmail"] = internal.NormalizeEmail(q.SubmitterEmail)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit)).SetSkip(int64(q.Offset))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	expenses := make([]*expense.Expense, len(docs))
	for i, doc := range docs {
		expenses[i] = doc.toExpense()
	}
	return expenses, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, e *expense.Expense, expectedVersion int64) error {
	next := *e
	next.Version = expectedVersion + 1

	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": e.ID, "version": expectedVersion},
		toDocument(&next))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": e.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return expense.ErrExpenseNotFound
		}
		return expense.ErrVersionConflict
	}

	e.Version = next.Version
	return nil
}
