package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityRecord is the database row of a mirrored entity.
type EntityRecord struct {
	ExternalID string    `gorm:"column:external_id;primaryKey;size:512"`
	Blueprint  string    `gorm:"column:blueprint;size:255;index"`
	Identifier string    `gorm:"column:identifier;size:255"`
	Title      string    `gorm:"column:title;size:512"`
	Document   string    `gorm:"column:document;type:text"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName overrides the default gorm table name.
func (EntityRecord) TableName() string {
	return "catalog_entities"
}

// Store mirrors entities into a SQL table.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a database-backed catalog.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the entity table.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&EntityRecord{})
}

// Upsert writes entities in one transaction, replacing existing rows.
func (s *Store) Upsert(ctx context.Context, entities []Entity) ([]string, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	records := make([]EntityRecord, 0, len(entities))
	for _, e := range entities {
		doc, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", e.ExternalID(), err)
		}
		records = append(records, EntityRecord{
			ExternalID: e.ExternalID(),
			Blueprint:  e.Blueprint,
			Identifier: e.Identifier,
			Title:      e.Title,
			Document:   string(doc),
			UpdatedAt:  s.now().UTC(),
		})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "document", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return nil, fmt.Errorf("upsert entities: %w", err)
	}

	written := make([]string, len(records))
	for i, r := range records {
		written[i] = r.ExternalID
	}
	return written, nil
}

// Delete removes rows by external id.
func (s *Store) Delete(ctx context.Context, entities []Entity) error {
	if len(entities) == 0 {
		return nil
	}
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ExternalID()
	}

	if err := s.db.WithContext(ctx).Where("external_id IN ?", ids).Delete(&EntityRecord{}).Error; err != nil {
		return fmt.Errorf("delete entities: %w", err)
	}
	return nil
}

// Prune removes rows of blueprint whose identifier is not in keep.
func (s *Store) Prune(ctx context.Context, blueprint string, keep map[string]struct{}) (int, error) {
	var existing []string
	err := s.db.WithContext(ctx).Model(&EntityRecord{}).
		Where("blueprint = ?", blueprint).
		Pluck("identifier", &existing).Error
	if err != nil {
		return 0, fmt.Errorf("list %s entities: %w", blueprint, err)
	}

	var stale []string
	for _, id := range existing {
		if _, ok := keep[id]; !ok {
			stale = append(stale, ExternalID(blueprint, id))
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Where("external_id IN ?", stale).Delete(&EntityRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune %s entities: %w", blueprint, res.Error)
	}
	return int(res.RowsAffected), nil
}

// Get loads one mirrored entity.
func (s *Store) Get(ctx context.Context, blueprint, identifier string) (*Entity, error) {
	var rec EntityRecord
	err := s.db.WithContext(ctx).Where("external_id = ?", ExternalID(blueprint, identifier)).First(&rec).Error
	if err != nil {
		return nil, err
	}

	var e Entity
	if err := json.Unmarshal([]byte(rec.Document), &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rec.ExternalID, err)
	}
	return &e, nil
}
