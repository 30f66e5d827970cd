package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/storefront/apifeatures"
)

// MongoStore implements Store over one collection.
type MongoStore struct {
	db     *mongo.Database
	coll   *mongo.Collection
	schema *Schema
	now    func() time.Time
}

func NewMongoStore(db *mongo.Database, schema *Schema) *MongoStore {
	return &MongoStore{
		db:     db,
		coll:   db.Collection(schema.Collection),
		schema: schema,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Collection exposes the underlying collection to record-specific operations.
func (s *MongoStore) Collection() *mongo.Collection {
	return s.coll
}

// EnsureIndexes creates the schema's indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if len(s.schema.Indexes) == 0 {
		return nil
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, s.schema.Indexes); err != nil {
		return fmt.Errorf("create %s indexes: %w", s.schema.Collection, err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalidID(id)
	}

	var doc bson.M
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	return doc, nil
}

func (s *MongoStore) Find(ctx context.Context, q apifeatures.Query) ([]bson.M, error) {
	filter, err := s.schema.castFilter(q.Filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if len(q.Projection) > 0 {
		opts.SetProjection(q.Projection)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	return docs, nil
}

func (s *MongoStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	cast, err := s.schema.castFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := s.coll.CountDocuments(ctx, cast)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Create casts and validates the body, fills defaults and timestamps, runs
// BeforeCreate, inserts, then runs AfterSave.
func (s *MongoStore) Create(ctx context.Context, body bson.M) (bson.M, error) {
	doc, err := s.schema.castDoc(body)
	if err != nil {
		return nil, err
	}
	s.schema.applyDefaults(doc)
	if err := s.schema.validate(doc); err != nil {
		return nil, err
	}

	now := s.now()
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	doc["createdAt"] = now
	doc["updatedAt"] = now
	doc[apifeatures.VersionField] = 0

	if s.schema.BeforeCreate != nil {
		if err := s.schema.BeforeCreate(ctx, doc); err != nil {
			return nil, err
		}
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, classify(err)
	}
	if err := s.afterSave(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FindByIDAndUpdate applies changes with $set and returns the updated record.
// Fields outside changes are never rewritten. Save hooks do not run here.
func (s *MongoStore) FindByIDAndUpdate(ctx context.Context, id string, changes bson.M) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalidID(id)
	}
	set, err := s.schema.castDoc(changes)
	if err != nil {
		return nil, err
	}
	delete(set, "_id")
	set["updatedAt"] = s.now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, classify(err)
	}
	return doc, nil
}

// Save runs AfterSave on a record already written by FindByIDAndUpdate.
// Writing it back would undo concurrent updates to fields outside the changes.
func (s *MongoStore) Save(ctx context.Context, doc bson.M) (bson.M, error) {
	if _, ok := doc["_id"]; !ok {
		return nil, fmt.Errorf("save %s: record has no _id", s.schema.Collection)
	}
	if err := s.afterSave(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the record by its own id and runs AfterDelete.
func (s *MongoStore) Delete(ctx context.Context, doc bson.M) error {
	id, ok := doc["_id"]
	if !ok {
		return fmt.Errorf("delete %s: record has no _id", s.schema.Collection)
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if s.schema.AfterDelete != nil {
		return s.schema.AfterDelete(ctx, doc)
	}
	return nil
}

func (s *MongoStore) afterSave(ctx context.Context, doc bson.M) error {
	if s.schema.AfterSave == nil {
		return nil
	}
	return s.schema.AfterSave(ctx, doc)
}

func (s *MongoStore) Present(docs ...bson.M) []bson.M {
	out := make([]bson.M, len(docs))
	for i, d := range docs {
		out[i] = s.schema.present(d)
	}
	return out
}

// Populate resolves every population with one query per path.
func (s *MongoStore) Populate(ctx context.Context, docs []bson.M, pops []Population) error {
	for _, p := range pops {
		var err error
		if p.ForeignField != "" {
			err = s.populateVirtual(ctx, docs, p)
		} else {
			err = s.populateForward(ctx, docs, p)
		}
		if err != nil {
			return fmt.Errorf("populate %s: %w", p.Path, err)
		}
	}
	return nil
}

func (s *MongoStore) populateForward(ctx context.Context, docs []bson.M, p Population) error {
	seen := map[primitive.ObjectID]struct{}{}
	ids := bson.A{}
	for _, d := range docs {
		for _, id := range refIDs(d[p.Path]) {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	related, err := s.findRelated(ctx, p.From, bson.M{"_id": bson.M{"$in": ids}}, p.Select)
	if err != nil {
		return err
	}
	byID := make(map[primitive.ObjectID]bson.M, len(related))
	for _, r := range related {
		if oid, ok := r["_id"].(primitive.ObjectID); ok {
			byID[oid] = r
		}
	}

	for _, d := range docs {
		switch v := d[p.Path].(type) {
		case primitive.ObjectID:
			if r, ok := byID[v]; ok {
				d[p.Path] = r
			} else {
				d[p.Path] = nil
			}
		case bson.A, []any:
			resolved := bson.A{}
			for _, id := range refIDs(v) {
				if r, ok := byID[id]; ok {
					resolved = append(resolved, r)
				}
			}
			d[p.Path] = resolved
		}
	}
	return nil
}

func (s *MongoStore) populateVirtual(ctx context.Context, docs []bson.M, p Population) error {
	ids := bson.A{}
	for _, d := range docs {
		if oid, ok := d["_id"].(primitive.ObjectID); ok {
			ids = append(ids, oid)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	fields := p.Select
	if len(fields) > 0 {
		fields = append(append([]string(nil), fields...), p.ForeignField)
	}
	related, err := s.findRelated(ctx, p.From, bson.M{p.ForeignField: bson.M{"$in": ids}}, fields)
	if err != nil {
		return err
	}

	grouped := map[primitive.ObjectID]bson.A{}
	for _, r := range related {
		if owner, ok := r[p.ForeignField].(primitive.ObjectID); ok {
			grouped[owner] = append(grouped[owner], r)
		}
	}
	for _, d := range docs {
		oid, _ := d["_id"].(primitive.ObjectID)
		list := grouped[oid]
		if list == nil {
			list = bson.A{}
		}
		d[p.Path] = list
	}
	return nil
}

func (s *MongoStore) findRelated(ctx context.Context, collection string, filter bson.M, fields []string) ([]bson.M, error) {
	opts := options.Find()
	if len(fields) > 0 {
		projection := bson.M{}
		for _, f := range fields {
			projection[f] = 1
		}
		opts.SetProjection(projection)
	}
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var related []bson.M
	if err := cursor.All(ctx, &related); err != nil {
		return nil, classify(err)
	}
	return related, nil
}

func refIDs(v any) []primitive.ObjectID {
	switch t := v.(type) {
	case primitive.ObjectID:
		return []primitive.ObjectID{t}
	case bson.A:
		return refIDs([]any(t))
	case []any:
		ids := make([]primitive.ObjectID, 0, len(t))
		for _, item := range t {
			if oid, ok := item.(primitive.ObjectID); ok {
				ids = append(ids, oid)
			}
		}
		return ids
	}
	return nil
}

// Increment adds Fields to the numeric fields of the record with ID.
type Increment struct {
	ID     primitive.ObjectID
	Fields bson.M
}

// BulkIncrement applies every increment in one unordered bulk write.
func (s *MongoStore) BulkIncrement(ctx context.Context, incs []Increment) error {
	if len(incs) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(incs))
	for _, inc := range incs {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": inc.ID}).
			SetUpdate(bson.M{"$inc": inc.Fields}))
	}
	if _, err := s.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return classify(err)
	}
	return nil
}

// UpdateByID applies a raw update document (operators included) and returns
// the updated record. Values are used as given.
func (s *MongoStore) UpdateByID(ctx context.Context, id string, update bson.M) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, invalidID(id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	return doc, nil
}
