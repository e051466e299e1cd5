package source

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
)

// ProviderRecord is the persisted form of a provider definition. A record
// belongs to one family; discarded records are ignored.
type ProviderRecord struct {
	ID        string         `gorm:"primaryKey;size:128"`
	Family    string         `gorm:"primaryKey;size:64"`
	Klass     string         `gorm:"size:256;not null"`
	Args      map[string]any `gorm:"serializer:json"`
	Discarded bool           `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (ProviderRecord) TableName() string { return "provider_records" }

// LastUpdate is the most recent of the creation and update times.
func (r ProviderRecord) LastUpdate() time.Time {
	if r.UpdatedAt.After(r.CreatedAt) {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// Definition converts the record.
func (r ProviderRecord) Definition() provider.Definition {
	return provider.Definition{
		ID:             r.ID,
		Implementation: r.Klass,
		Arguments:      r.Args,
		LastUpdate:     r.LastUpdate(),
	}
}

// SQL enumerates the non-discarded records of one family.
type SQL struct {
	db      *gorm.DB
	family  string
	timeout time.Duration
}

// NewSQL creates a SQL source for family. A zero timeout leaves the query
// bounded by the caller's context only.
func NewSQL(db *gorm.DB, family string, timeout time.Duration) *SQL {
	return &SQL{db: db, family: family, timeout: timeout}
}

// OpenSQLite opens a sqlite database with the service logger attached and
// optionally migrates the provider_records table.
func OpenSQLite(dsn string, log *logger.Logger, migrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("opening provider database: %w", err)
	}
	if migrate {
		if err := db.AutoMigrate(&ProviderRecord{}); err != nil {
			return nil, fmt.Errorf("migrating provider_records: %w", err)
		}
	}
	return db, nil
}

// ListProviders implements provider.Source.
func (s *SQL) ListProviders(ctx context.Context) ([]provider.Definition, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var records []ProviderRecord
	err := s.db.WithContext(ctx).
		Where("family = ? AND discarded = ?", s.family, false).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s providers: %w", s.family, err)
	}

	defs := make([]provider.Definition, 0, len(records))
	for _, r := range records {
		defs = append(defs, r.Definition())
	}
	return defs, nil
}

// Save inserts or updates a record of this source's family.
func (s *SQL) Save(ctx context.Context, rec *ProviderRecord) error {
	rec.Family = s.family
	return s.db.WithContext(ctx).Save(rec).Error
}

// Discard marks a record discarded so the next enumeration drops it.
func (s *SQL) Discard(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&ProviderRecord{}).
		Where("id = ? AND family = ?", id, s.family).
		Updates(map[string]any{"discarded": true, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("provider %q not found in family %s", id, s.family)
	}
	return nil
}
