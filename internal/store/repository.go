package store

import (
	stderrors "errors"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = stderrors.New("window record not found")

// Repository handles all database operations for window records
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new window record
func (r *Repository) Create(rec *WindowRecord) error {
	result := r.db.Create(rec)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert window record")
	}
	return nil
}

// FindByHandle retrieves the record for a toolkit window id
func (r *Repository) FindByHandle(handle uint32) (*WindowRecord, error) {
	var rec WindowRecord
	result := r.db.Where("handle = ?", handle).First(&rec)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to query window record by handle")
	}
	return &rec, nil
}

// FindByIdentity retrieves the record for an identity
func (r *Repository) FindByIdentity(identity string) (*WindowRecord, error) {
	var rec WindowRecord
	result := r.db.Where("identity = ?", identity).First(&rec)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to query window record by identity")
	}
	return &rec, nil
}

// SaveWorkspace sets the last-known workspace for an identity. Identities
// without a record are left alone; the caller decides whether that matters.
func (r *Repository) SaveWorkspace(identity, workspace string) error {
	result := r.db.Model(&WindowRecord{}).
		Where("identity = ?", identity).
		Update("workspace", workspace)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update workspace")
	}
	return nil
}

// RenameWorkspace rewrites the stored workspace name on every record
// placed on old. It returns the number of records touched.
func (r *Repository) RenameWorkspace(old, new string) (int64, error) {
	result := r.db.Model(&WindowRecord{}).
		Where("workspace = ?", old).
		Update("workspace", new)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to rename workspace")
	}
	return result.RowsAffected, nil
}

// List returns every record, including orphans left by closed windows,
// ordered by creation time.
func (r *Repository) List() ([]WindowRecord, error) {
	var recs []WindowRecord
	result := r.db.Order("created_at ASC").Find(&recs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list window records")
	}
	return recs, nil
}
