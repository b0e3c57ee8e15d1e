// Package mongostore implements storage.Store on MongoDB, one collection
// per aggregate. Shopping list items are embedded in their list document.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"financas/internal/core"
	"financas/internal/storage"
)

const (
	collCategories         = "categories"
	collTransactions       = "transactions"
	collShoppingCategories = "shopping_categories"
	collProducts           = "products"
	collShoppingLists      = "shopping_lists"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database

	seqMu   sync.Mutex
	lastSeq int64
}

var _ storage.Store = (*Store)(nil)

// New connects to uri and indexes the collections of database dbName.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.Info("Connected to MongoDB", "database", dbName)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string]string{
		collCategories:         "seq",
		collTransactions:       "seq",
		collShoppingCategories: "seq",
		collProducts:           "seq",
		collShoppingLists:      "seq",
	}
	for coll, field := range indexes {
		_, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}})
		if err != nil {
			return fmt.Errorf("create index on %s.%s: %w", coll, field, err)
		}
	}
	_, err := s.db.Collection(collTransactions).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "categoryId", Value: 1}}})
	if err != nil {
		return fmt.Errorf("create index on transactions.categoryId: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// nextSeq returns a strictly increasing insertion key.
func (s *Store) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

var bySeq = options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})

func (s *Store) insert(ctx context.Context, coll, kind, id string, doc any) error {
	_, err := s.db.Collection(coll).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s already exists: %w", kind, id, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", kind, err)
	}
	return nil
}

// update sets every field of doc except _id and seq on the document id.
func (s *Store) update(ctx context.Context, coll, kind, id string, doc any) error {
	res, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, coll, kind, id string) error {
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, coll, kind, id string, out any) error {
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", kind, err)
	}
	return nil
}

func findAll[T any](ctx context.Context, s *Store, coll string) ([]T, error) {
	cursor, err := s.db.Collection(coll).Find(ctx, bson.M{}, bySeq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", coll, err)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", coll, err)
		}
		out = append(out, doc)
	}
	return out, cursor.Err()
}

func (s *Store) countBy(ctx context.Context, coll, field, value string) (int, error) {
	n, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{field: value})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", coll, err)
	}
	return int(n), nil
}

// Categories

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	docs, err := findAll[categoryDoc](ctx, s, collCategories)
	if err != nil {
		return nil, err
	}
	out := make([]core.Category, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var d categoryDoc
	if err := s.findOne(ctx, collCategories, "category", id, &d); err != nil {
		return core.Category{}, err
	}
	return d.toCore(), nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) error {
	d := fromCategory(c)
	d.Seq = s.nextSeq()
	return s.insert(ctx, collCategories, "category", c.ID, d)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.delete(ctx, collCategories, "category", id)
}

// Transactions

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	docs, err := findAll[transactionDoc](ctx, s, collTransactions)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		t, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var d transactionDoc
	if err := s.findOne(ctx, collTransactions, "transaction", id, &d); err != nil {
		return core.Transaction{}, err
	}
	return d.toCore()
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) error {
	d := fromTransaction(t)
	d.Seq = s.nextSeq()
	return s.insert(ctx, collTransactions, "transaction", t.ID, d)
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	d := fromTransaction(t)
	d.ID = ""
	return s.update(ctx, collTransactions, "transaction", t.ID, d)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.delete(ctx, collTransactions, "transaction", id)
}

func (s *Store) CountTransactionsByCategory(ctx context.Context, categoryID string) (int, error) {
	return s.countBy(ctx, collTransactions, "categoryId", categoryID)
}

// Shopping categories

func (s *Store) ListShoppingCategories(ctx context.Context) ([]core.ShoppingCategory, error) {
	docs, err := findAll[shoppingCategoryDoc](ctx, s, collShoppingCategories)
	if err != nil {
		return nil, err
	}
	out := make([]core.ShoppingCategory, len(docs))
	for i, d := range docs {
		out[i] = core.ShoppingCategory{ID: d.ID, Name: d.Name}
	}
	return out, nil
}

func (s *Store) GetShoppingCategory(ctx context.Context, id string) (core.ShoppingCategory, error) {
	var d shoppingCategoryDoc
	if err := s.findOne(ctx, collShoppingCategories, "shopping category", id, &d); err != nil {
		return core.ShoppingCategory{}, err
	}
	return core.ShoppingCategory{ID: d.ID, Name: d.Name}, nil
}

func (s *Store) CreateShoppingCategory(ctx context.Context, c core.ShoppingCategory) error {
	d := shoppingCategoryDoc{ID: c.ID, Name: c.Name, Seq: s.nextSeq()}
	return s.insert(ctx, collShoppingCategories, "shopping category", c.ID, d)
}

func (s *Store) UpdateShoppingCategory(ctx context.Context, c core.ShoppingCategory) error {
	return s.update(ctx, collShoppingCategories, "shopping category", c.ID, shoppingCategoryDoc{Name: c.Name})
}

func (s *Store) DeleteShoppingCategory(ctx context.Context, id string) error {
	return s.delete(ctx, collShoppingCategories, "shopping category", id)
}

// Products

func (s *Store) ListProducts(ctx context.Context) ([]core.Product, error) {
	docs, err := findAll[productDoc](ctx, s, collProducts)
	if err != nil {
		return nil, err
	}
	out := make([]core.Product, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (core.Product, error) {
	var d productDoc
	if err := s.findOne(ctx, collProducts, "product", id, &d); err != nil {
		return core.Product{}, err
	}
	return d.toCore(), nil
}

func (s *Store) CreateProduct(ctx context.Context, p core.Product) error {
	d := fromProduct(p)
	d.Seq = s.nextSeq()
	return s.insert(ctx, collProducts, "product", p.ID, d)
}

func (s *Store) UpdateProduct(ctx context.Context, p core.Product) error {
	d := fromProduct(p)
	d.ID = ""
	return s.update(ctx, collProducts, "product", p.ID, d)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.delete(ctx, collProducts, "product", id)
}

func (s *Store) CountProductsByCategory(ctx context.Context, categoryID string) (int, error) {
	return s.countBy(ctx, collProducts, "categoryId", categoryID)
}

// Shopping lists

func (s *Store) ListShoppingLists(ctx context.Context) ([]core.ShoppingList, error) {
	docs, err := findAll[listDoc](ctx, s, collShoppingLists)
	if err != nil {
		return nil, err
	}
	out := make([]core.ShoppingList, 0, len(docs))
	for _, d := range docs {
		l, err := d.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) GetShoppingList(ctx context.Context, id string) (core.ShoppingList, error) {
	var d listDoc
	if err := s.findOne(ctx, collShoppingLists, "shopping list", id, &d); err != nil {
		return core.ShoppingList{}, err
	}
	return d.toCore()
}

func (s *Store) CreateShoppingList(ctx context.Context, l core.ShoppingList) error {
	d := fromList(l)
	d.Seq = s.nextSeq()
	return s.insert(ctx, collShoppingLists, "shopping list", l.ID, d)
}

func (s *Store) SaveShoppingList(ctx context.Context, l core.ShoppingList) error {
	d := fromList(l)
	d.ID = ""
	return s.update(ctx, collShoppingLists, "shopping list", l.ID, d)
}

func (s *Store) DeleteShoppingList(ctx context.Context, id string) error {
	return s.delete(ctx, collShoppingLists, "shopping list", id)
}
