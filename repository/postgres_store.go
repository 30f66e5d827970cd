package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yashrajoria/storefront/apifeatures"
	apperrors "github.com/yashrajoria/storefront/common/errors"
)

// TableMapping binds a gorm model to the document shape the services use.
type TableMapping[T any] struct {
	Label string
	// Columns maps document fields to column names. "_id" must map to the primary key.
	Columns    map[string]string
	DateFields []string
	Required   []string
	ToDoc      func(*T) bson.M
	// FromDoc copies document fields onto the row.
	FromDoc func(bson.M, *T) error
}

// PostgresStore implements Store over one gorm model.
type PostgresStore[T any] struct {
	db      *gorm.DB
	mapping TableMapping[T]
	filter  sqlFilter
}

func NewPostgresStore[T any](db *gorm.DB, mapping TableMapping[T]) *PostgresStore[T] {
	dates := map[string]bool{"createdAt": true, "updatedAt": true}
	for _, f := range mapping.DateFields {
		dates[f] = true
	}
	return &PostgresStore[T]{
		db:      db,
		mapping: mapping,
		filter:  sqlFilter{columns: mapping.Columns, dates: dates},
	}
}

func (s *PostgresStore[T]) FindByID(ctx context.Context, id string) (bson.M, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, invalidID(id)
	}
	var row T
	if err := s.db.WithContext(ctx).Where(s.mapping.Columns["_id"]+" = ?", id).First(&row).Error; err != nil {
		return nil, classifySQL(err)
	}
	return s.mapping.ToDoc(&row), nil
}

func (s *PostgresStore[T]) Find(ctx context.Context, q apifeatures.Query) ([]bson.M, error) {
	tx, err := s.scoped(ctx, q.Filter)
	if err != nil {
		return nil, err
	}
	if cols := s.filter.orderBy(q.Sort); len(cols) > 0 {
		tx = tx.Order(clause.OrderBy{Columns: cols})
	}
	if q.Skip > 0 {
		tx = tx.Offset(int(q.Skip))
	}
	if q.Limit > 0 {
		tx = tx.Limit(int(q.Limit))
	}

	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, classifySQL(err)
	}
	docs := make([]bson.M, 0, len(rows))
	for i := range rows {
		docs = append(docs, applyProjection(s.mapping.ToDoc(&rows[i]), q.Projection))
	}
	return docs, nil
}

func (s *PostgresStore[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	tx, err := s.scoped(ctx, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, classifySQL(err)
	}
	return n, nil
}

func (s *PostgresStore[T]) Create(ctx context.Context, body bson.M) (bson.M, error) {
	if err := s.validate(body); err != nil {
		return nil, err
	}
	var row T
	if err := s.mapping.FromDoc(body, &row); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, classifySQL(err)
	}
	return s.mapping.ToDoc(&row), nil
}

func (s *PostgresStore[T]) FindByIDAndUpdate(ctx context.Context, id string, changes bson.M) (bson.M, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, invalidID(id)
	}
	if err := s.update(ctx, id, changes); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

// Save returns the record unchanged. FindByIDAndUpdate already wrote it and
// rows have no save hooks.
func (s *PostgresStore[T]) Save(_ context.Context, doc bson.M) (bson.M, error) {
	if id, _ := doc["_id"].(string); id == "" {
		return nil, fmt.Errorf("save %s: record has no _id", s.mapping.Label)
	}
	return doc, nil
}

func (s *PostgresStore[T]) Delete(ctx context.Context, doc bson.M) error {
	id, _ := doc["_id"].(string)
	if id == "" {
		return fmt.Errorf("delete %s: record has no _id", s.mapping.Label)
	}
	res := s.db.WithContext(ctx).Where(s.mapping.Columns["_id"]+" = ?", id).Delete(new(T))
	if res.Error != nil {
		return classifySQL(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Populate is a no-op: relational records here carry no references.
func (s *PostgresStore[T]) Populate(context.Context, []bson.M, []Population) error {
	return nil
}

func (s *PostgresStore[T]) Present(docs ...bson.M) []bson.M {
	out := make([]bson.M, len(docs))
	for i, d := range docs {
		cp := make(bson.M, len(d))
		for k, v := range d {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

func (s *PostgresStore[T]) scoped(ctx context.Context, filter bson.M) (*gorm.DB, error) {
	where, err := s.filter.where(filter)
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Model(new(T))
	if where != nil {
		tx = tx.Clauses(clause.Where{Exprs: []clause.Expression{where}})
	}
	return tx, nil
}

func (s *PostgresStore[T]) update(ctx context.Context, id string, changes bson.M) error {
	columns := map[string]any{}
	for k, v := range changes {
		column, ok := s.mapping.Columns[k]
		if !ok || k == "_id" {
			continue
		}
		cast, err := s.filter.value(k, v)
		if err != nil {
			return err
		}
		columns[column] = cast
	}
	if len(columns) == 0 {
		// still has to resolve the id
		var n int64
		if err := s.db.WithContext(ctx).Model(new(T)).Where(s.mapping.Columns["_id"]+" = ?", id).Count(&n).Error; err != nil {
			return classifySQL(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	res := s.db.WithContext(ctx).Model(new(T)).Where(s.mapping.Columns["_id"]+" = ?", id).Updates(columns)
	if res.Error != nil {
		return classifySQL(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore[T]) validate(doc bson.M) error {
	schema := Schema{Label: s.mapping.Label, Required: s.mapping.Required}
	return schema.validate(doc)
}

func classifySQL(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.New(http.StatusBadRequest, "Duplicate field value entered", err)
	}
	return err
}

// CastDate converts a body value to a time for FromDoc implementations.
func CastDate(v any) (time.Time, bool) {
	d, ok := toDate(v)
	if !ok {
		return time.Time{}, false
	}
	switch t := d.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time().UTC(), true
	}
	return time.Time{}, false
}
