package eventstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// MongoRepository stores events as documents in one collection. Timestamps
// are kept with millisecond precision.
type MongoRepository struct {
	coll *mongo.Collection
	opts options
}

var _ event.Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database, opts ...Option) *MongoRepository {
	if db == nil {
		panic("eventstore: mongo database cannot be nil")
	}
	o := build(opts)
	o.logger = o.logger.With(logger.Component("eventstore.mongo"))
	return &MongoRepository{coll: db.Collection(o.collection), opts: o}
}

// CreateSchema creates the collection indexes. Existing indexes are kept.
func (r *MongoRepository) CreateSchema(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "timestamp", Value: 1}, {Key: "uid", Value: 1}}},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		return unavailable("mongo", "create indexes", err)
	}
	return nil
}

func (r *MongoRepository) Log(ctx context.Context, e event.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, e); err != nil {
		return unavailable("mongo", "insert", err)
	}
	return nil
}

// LogBatch inserts the events in order with a single request.
func (r *MongoRepository) LogBatch(ctx context.Context, events []event.Event) error {
	if err := validateAll(events); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if _, err := r.coll.InsertMany(ctx, events); err != nil {
		return unavailable("mongo", "insert batch", err)
	}
	return nil
}

func (r *MongoRepository) Find(ctx context.Context, uid string) (event.Event, error) {
	if uid == "" {
		return event.Event{}, emptyUID()
	}
	var e event.Event
	err := r.coll.FindOne(ctx, bson.D{{Key: "uid", Value: uid}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return event.Event{}, notFound(uid)
	}
	if err != nil {
		return event.Event{}, unavailable("mongo", "find", err)
	}
	return normalize(e), nil
}

func (r *MongoRepository) Search(ctx context.Context, q event.Query) (*event.Series, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, mongoFilter(q),
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "uid", Value: 1}}))
	if err != nil {
		return nil, unavailable("mongo", "find", err)
	}
	var events []event.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, unavailable("mongo", "find", err)
	}

	s := event.NewSeries(0)
	for _, e := range events {
		s.Add(normalize(e))
	}
	return s, nil
}

func (r *MongoRepository) Purge(ctx context.Context, q event.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	res, err := r.coll.DeleteMany(ctx, mongoFilter(q))
	if err != nil {
		return unavailable("mongo", "delete", err)
	}
	r.opts.logger.DebugContext(ctx, "events purged", logger.Count(int(res.DeletedCount)))
	return r.Log(ctx, event.PurgeEvent(q, r.opts.source))
}

func (r *MongoRepository) TotalHitCount(ctx context.Context, q event.Query) (int, error) {
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return 0, err
	}
	n, err := r.coll.CountDocuments(ctx, mongoFilter(q))
	if err != nil {
		return 0, unavailable("mongo", "count", err)
	}
	return int(n), nil
}

func (r *MongoRepository) HitCount(ctx context.Context, q event.Query) (map[string]int, error) {
	return r.HitCountBy(ctx, q, event.DimensionTarget)
}

func (r *MongoRepository) HitCountBy(ctx context.Context, q event.Query, d event.Dimension) (map[string]int, error) {
	field, ok := mongoField(d)
	if !ok {
		return nil, invalidDimension(d)
	}
	q = event.HitQuery(q)
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cur, err := r.coll.Aggregate(ctx, hitPipeline(q, field))
	if err != nil {
		return nil, unavailable("mongo", "aggregate", err)
	}
	var groups []struct {
		Key   *string `bson:"_id"`
		Count int     `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, unavailable("mongo", "aggregate", err)
	}

	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		key := ""
		if g.Key != nil {
			key = *g.Key
		}
		counts[key] += g.Count
	}
	return counts, nil
}

func (r *MongoRepository) RegisterAuditListener(event.Logger) {}

func (r *MongoRepository) UnregisterAuditListener() {}

// mongoFilter renders q as a document filter on the bson field names of event.Event.
func mongoFilter(q event.Query) bson.D {
	filter := bson.D{}
	window := bson.D{}
	if !q.From.IsZero() {
		window = append(window, bson.E{Key: "$gte", Value: q.From.UTC()})
	}
	if !q.To.IsZero() {
		window = append(window, bson.E{Key: "$lt", Value: q.To.UTC()})
	}
	if len(window) > 0 {
		filter = append(filter, bson.E{Key: "timestamp", Value: window})
	}
	if q.Scope != "" {
		filter = append(filter, bson.E{Key: "scope", Value: string(q.Scope)})
	}
	if q.Source != "" {
		filter = append(filter, bson.E{Key: "source", Value: string(q.Source)})
	}
	if q.Action != "" {
		filter = append(filter, bson.E{Key: "action", Value: string(q.Action)})
	}
	if q.TargetUID != "" {
		filter = append(filter, bson.E{Key: "target_uid", Value: q.TargetUID})
	}
	return filter
}

func hitPipeline(q event.Query, field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(q)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
}

func mongoField(d event.Dimension) (string, bool) {
	switch d {
	case event.DimensionTarget:
		return "target_uid", true
	case event.DimensionSource:
		return "source", true
	case event.DimensionUser:
		return "user", true
	case event.DimensionHost:
		return "host", true
	}
	return "", false
}

func normalize(e event.Event) event.Event {
	e.Timestamp = e.Timestamp.UTC()
	if len(e.Metadata) == 0 {
		e.Metadata = nil
	}
	return e
}
