// Package archive provides the MongoDB-backed store for analysis records.
// Records are appended with an embedding of their body, retrievable by
// exact date range and by semantic nearest-neighbor search.
package archive

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tickerbrief/tickerbrief/internal/models"
)

// Embedder converts text into a vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store persists analysis records. It is append-only: writes never
// overwrite, repeated writes of the same record create additional records.
type Store struct {
	client   *mongo.Client
	records  *mongo.Collection
	embedder Embedder
}

// document is the stored shape: the record plus its body embedding.
type document struct {
	models.AnalysisRecord `bson:",inline"`

	Embedding []float32 `bson:"embedding"`
}

// NewStore connects to MongoDB and prepares the records collection.
func NewStore(ctx context.Context, uri, dbName string, embedder Embedder) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &PersistenceError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &PersistenceError{Op: "connect", Err: err}
	}

	db := client.Database(dbName)
	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	s := &Store{
		client:   client,
		records:  db.Collection("analyses"),
		embedder: embedder,
	}

	if err := s.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create some indexes")
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ticker", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
	}
	_, err := s.records.Indexes().CreateMany(ctx, indexes)
	return err
}

// Write validates a record, embeds its body, and appends it. On failure the
// caller retains the in-memory record and may retry; nothing is dropped
// silently.
func (s *Store) Write(ctx context.Context, rec *models.AnalysisRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, rec.Body)
	if err != nil {
		return "", &PersistenceError{Op: "embed", Err: err}
	}

	doc := document{AnalysisRecord: *rec, Embedding: vector}
	doc.ID = primitive.NilObjectID

	res, err := s.records.InsertOne(ctx, doc)
	if err != nil {
		return "", &PersistenceError{Op: "insert", Err: err}
	}

	id := res.InsertedID.(primitive.ObjectID)
	log.Info().
		Str("id", id.Hex()).
		Str("ticker", rec.Ticker).
		Str("type", string(rec.Type)).
		Str("date", rec.Date).
		Msg("Analysis archived")

	return id.Hex(), nil
}

// QueryRange returns daily records within [start, end] in chronological
// order. Reflections are excluded so that reflection inputs never include
// earlier reflections; use QueryRangeAll to include them. An empty ticker
// matches all tickers. No matches is an empty slice, not an error.
func (s *Store) QueryRange(ctx context.Context, start, end, ticker string) ([]models.AnalysisRecord, error) {
	return s.queryRange(ctx, start, end, ticker, true)
}

// QueryRangeAll is QueryRange without the daily-only restriction.
func (s *Store) QueryRangeAll(ctx context.Context, start, end, ticker string) ([]models.AnalysisRecord, error) {
	return s.queryRange(ctx, start, end, ticker, false)
}

func (s *Store) queryRange(ctx context.Context, start, end, ticker string, dailyOnly bool) ([]models.AnalysisRecord, error) {
	filter := bson.M{"date": bson.M{"$gte": start, "$lte": end}}
	if ticker != "" {
		filter["ticker"] = ticker
	}
	if dailyOnly {
		filter["type"] = models.AnalysisDaily
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "ticker", Value: 1}})
	cursor, err := s.records.Find(ctx, filter, opts)
	if err != nil {
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	defer cursor.Close(ctx)

	var recs []models.AnalysisRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, &PersistenceError{Op: "decode", Err: err}
	}
	return recs, nil
}

// SearchResult pairs a record with its similarity score.
type SearchResult struct {
	Record models.AnalysisRecord
	Score  float64
}

// DateRange bounds a search by archived date (inclusive, ISO dates).
type DateRange struct {
	Start string
	End   string
}

// Search embeds the query and returns the k most similar records, highest
// score first. Ticker and date filters are applied in the database before
// ranking so the top-k cutoff never truncates filtered results.
func (s *Store) Search(ctx context.Context, query, ticker string, k int, dates *DateRange) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Op: "embed", Err: err}
	}

	filter := bson.M{}
	if ticker != "" {
		filter["ticker"] = ticker
	}
	if dates != nil {
		filter["date"] = bson.M{"$gte": dates.Start, "$lte": dates.End}
	}

	cursor, err := s.records.Find(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &PersistenceError{Op: "decode", Err: err}
	}

	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, SearchResult{
			Record: doc.AnalysisRecord,
			Score:  cosineSimilarity(vector, doc.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// cosineSimilarity scores two vectors in [-1, 1]. Mismatched or zero
// vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// PersistenceError reports a storage-backend failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
