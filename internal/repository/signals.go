package repository

import (
	"fmt"
	"time"

	"forex-signal-go/internal/models"

	"gorm.io/gorm"
)

// SignalRepository is the persistence boundary for SignalRecord. It holds
// no business logic; lifecycle decisions live in the monitor package.
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a repository on top of the shared gorm handle.
func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create persists a freshly generated signal in pending state.
func (r *SignalRepository) Create(sig *models.SignalRecord) error {
	if err := r.db.Create(sig).Error; err != nil {
		return fmt.Errorf("failed to create signal record: %w", err)
	}
	return nil
}

// ListActive returns all records still requiring monitoring, in stable id order.
func (r *SignalRepository) ListActive() ([]models.SignalRecord, error) {
	var signals []models.SignalRecord
	err := r.db.
		Where("status IN ?", []string{models.StatusPending, models.StatusOpen}).
		Order("id").
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active signals: %w", err)
	}
	return signals, nil
}

// MarkOpened transitions a pending record to open in a single atomic update.
// The status guard in the WHERE clause makes a repeated or stale call a no-op
// error instead of a partial overwrite.
func (r *SignalRepository) MarkOpened(id uint, openPrice float64) error {
	res := r.db.Model(&models.SignalRecord{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":     models.StatusOpen,
			"open_price": openPrice,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to open signal %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("signal %d is not pending", id)
	}
	return nil
}

// MarkClosed transitions an open record to a terminal status in a single
// atomic update, recording close price, realized P/L and close time.
func (r *SignalRepository) MarkClosed(id uint, status string, closePrice, pnl float64) error {
	if status != models.StatusClosedTP && status != models.StatusClosedSL {
		return fmt.Errorf("invalid terminal status %q for signal %d", status, id)
	}
	res := r.db.Model(&models.SignalRecord{}).
		Where("id = ? AND status = ?", id, models.StatusOpen).
		Updates(map[string]interface{}{
			"status":      status,
			"close_price": closePrice,
			"pnl":         pnl,
			"closed_at":   time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to close signal %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("signal %d is not open", id)
	}
	return nil
}

// HistoryForUser returns every signal a user generated, newest first.
func (r *SignalRepository) HistoryForUser(userID uint) ([]models.SignalRecord, error) {
	var signals []models.SignalRecord
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signal history: %w", err)
	}
	return signals, nil
}

// ClosedForUser returns a user's terminal records, the basis for statistics.
func (r *SignalRepository) ClosedForUser(userID uint) ([]models.SignalRecord, error) {
	var signals []models.SignalRecord
	err := r.db.
		Where("user_id = ? AND status IN ?", userID, []string{models.StatusClosedTP, models.StatusClosedSL}).
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch closed signals: %w", err)
	}
	return signals, nil
}

// DirectionCount is one row of the per-source signal summary.
type DirectionCount struct {
	Direction string `json:"direction"`
	Count     int64  `json:"count"`
}

// SummaryForUser counts a user's generated signals per direction for one source.
func (r *SignalRepository) SummaryForUser(userID uint, source string) ([]DirectionCount, error) {
	var counts []DirectionCount
	err := r.db.Model(&models.SignalRecord{}).
		Select("direction, COUNT(*) as count").
		Where("user_id = ? AND source = ?", userID, source).
		Group("direction").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize signals: %w", err)
	}
	return counts, nil
}
