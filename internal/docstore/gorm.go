package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/models"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps documents in the Postgres documents table (jsonb).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// inCollection returns a GORM scope that filters by collection.
func inCollection(collection string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("collection = ?", collection)
	}
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := checkPath(collection, id); err != nil {
		return nil, err
	}

	var row models.Document
	err := s.db.WithContext(ctx).Scopes(inCollection(collection)).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
	}
	return fromRow(&row)
}

func (s *GormStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := ulid.Make().String()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *GormStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	raw, err := encode(data)
	if err != nil {
		return err
	}

	row := models.Document{Collection: collection, ID: id, Data: raw}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Document
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(inCollection(collection)).
			First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read %s/%s: %w", collection, id, err)
		}

		current := map[string]any{}
		if len(row.Data) > 0 {
			if err := json.Unmarshal(row.Data, &current); err != nil {
				return fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
			}
		}
		for k, v := range patch {
			current[k] = v
		}
		raw, err := encode(current)
		if err != nil {
			return err
		}

		return tx.Model(&models.Document{}).
			Scopes(inCollection(collection)).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"data":       raw,
				"updated_at": time.Now(),
			}).Error
	})
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Scopes(inCollection(collection)).
		Where("id = ?", id).
		Delete(&models.Document{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := checkPath(collection); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx).Model(&models.Document{}).Scopes(inCollection(collection))
	for _, f := range q.Filters {
		scoped, err := applyFilter(db, f)
		if err != nil {
			return nil, err
		}
		db = scoped
	}
	if q.OrderBy != "" {
		db = db.Order(clause.OrderBy{Expression: clause.Expr{SQL: "data ->> ?", Vars: []interface{}{q.OrderBy}}})
	}
	db = db.Order("id")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var rows []models.Document
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for i := range rows {
		doc, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func applyFilter(db *gorm.DB, f Filter) (*gorm.DB, error) {
	switch f.Op {
	case OpEqual:
		b, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter value is not JSON encodable: %w", err)
		}
		return db.Where("data -> ? = ?::jsonb", f.Field, string(b)), nil
	case OpArrayContainsAny:
		values, err := stringList(f.Value)
		if err != nil {
			return nil, err
		}
		return db.Where("jsonb_exists_any(data -> ?, ?::text[])", f.Field, pq.Array(values)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFilter, f.Op)
	}
}

func stringList(v any) ([]string, error) {
	norm, err := normalizeValue(v)
	if err != nil {
		return nil, err
	}
	items, ok := norm.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s needs a list value", ErrUnsupportedFilter, OpArrayContainsAny)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s only supports strings", ErrUnsupportedFilter, OpArrayContainsAny)
		}
		out = append(out, s)
	}
	return out, nil
}

func encode(data map[string]any) (datatypes.JSON, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON encodable: %w", err)
	}
	return datatypes.JSON(b), nil
}

func fromRow(row *models.Document) (*Document, error) {
	data := map[string]any{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return nil, fmt.Errorf("corrupt document %s/%s: %w", row.Collection, row.ID, err)
		}
	}
	return &Document{
		Collection: row.Collection,
		ID:         row.ID,
		Data:       data,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}
