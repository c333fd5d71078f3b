package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository is the ledger data access interface. Entries are
// append-only; there are no update or delete operations.
type LedgerRepository interface {
	CreateEntry(entry *models.LedgerEntry) error
	CreateEntries(entries []models.LedgerEntry) error
	GetByReference(reference string) (*models.LedgerEntry, error)
	GetByID(id uint) (*models.LedgerEntry, error)
	SumByKind(merchantID uint) (map[string]int64, error)
	List(filter LedgerListFilter) ([]models.LedgerEntry, int64, error)
	ListMaturedReserveHolds(now time.Time, limit int) ([]models.LedgerEntry, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormLedgerRepository
}

// GormLedgerRepository is the GORM ledger repository.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates the ledger repository.
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) *GormLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormLedgerRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateEntry appends a ledger entry. The unique reference index
// rejects duplicates.
func (r *GormLedgerRepository) CreateEntry(entry *models.LedgerEntry) error {
	return r.db.Create(entry).Error
}

// CreateEntries appends a batch of ledger entries atomically with the
// surrounding transaction.
func (r *GormLedgerRepository) CreateEntries(entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Create(&entries).Error
}

// GetByReference fetches an entry by its idempotency reference.
func (r *GormLedgerRepository) GetByReference(reference string) (*models.LedgerEntry, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.Where("reference = ?", reference).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetByID fetches an entry by ID.
func (r *GormLedgerRepository) GetByID(id uint) (*models.LedgerEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// SumByKind folds a merchant's ledger into per-kind totals in cents.
func (r *GormLedgerRepository) SumByKind(merchantID uint) (map[string]int64, error) {
	sums := make(map[string]int64)
	if merchantID == 0 {
		return sums, nil
	}
	var rows []struct {
		Kind  string
		Total int64
	}
	if err := r.db.Model(&models.LedgerEntry{}).
		Select("kind, COALESCE(SUM(amount), 0) AS total").
		Where("merchant_id = ?", merchantID).
		Group("kind").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.Kind] = row.Total
	}
	return sums, nil
}

// List pages through ledger entries, newest first.
func (r *GormLedgerRepository) List(filter LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	query := r.db.Model(&models.LedgerEntry{})
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Reference != "" {
		query = query.Where("reference LIKE ?", "%"+filter.Reference+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.LedgerEntry
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListMaturedReserveHolds returns reserve holds whose maturity has
// passed and which have no matching release entry yet. The release
// reference embeds the hold entry ID, so the anti-join works on both
// sqlite and postgres via string concatenation.
func (r *GormLedgerRepository) ListMaturedReserveHolds(now time.Time, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var holds []models.LedgerEntry
	err := r.db.
		Where("kind = ?", "reserve_hold").
		Where("reserve_matures_at IS NOT NULL AND reserve_matures_at <= ?", now).
		Where("NOT EXISTS (SELECT 1 FROM ledger_entries releases WHERE releases.reference = 'reserve_release:' || ledger_entries.id)").
		Order("reserve_matures_at asc").
		Limit(limit).
		Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}
