package repository

import (
	"testing"

	"forex-signal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRepo creates a fresh in-memory database per test for isolation.
func setupRepo(t *testing.T) *SignalRepository {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.SignalRecord{})
	assert.NoError(t, err)

	return NewSignalRepository(db)
}

func newPendingSignal(userID uint, symbol string) *models.SignalRecord {
	return &models.SignalRecord{
		UserID:         userID,
		Symbol:         symbol,
		Timeframe:      "1d",
		Source:         models.SourceAI,
		Direction:      models.DirectionBuy,
		Summary:        "BUY",
		EntryZoneStart: 1.1000,
		EntryZoneEnd:   1.0950,
		TakeProfit:     1.1100,
		StopLoss:       1.0900,
		Status:         models.StatusPending,
	}
}

func TestListActive_ReturnsOnlyPendingAndOpen(t *testing.T) {
	// Arrange
	repo := setupRepo(t)
	assert.NoError(t, repo.Create(newPendingSignal(1, "EUR/USD")))
	assert.NoError(t, repo.Create(newPendingSignal(1, "GBP/USD")))

	closed := newPendingSignal(1, "USD/JPY")
	closed.Status = models.StatusClosedTP
	assert.NoError(t, repo.Create(closed))

	// Act
	active, err := repo.ListActive()

	// Assert
	assert.NoError(t, err)
	assert.Len(t, active, 2)
	for _, s := range active {
		assert.True(t, s.Active())
	}
}

func TestMarkOpened_SetsStatusAndOpenPrice(t *testing.T) {
	// Arrange
	repo := setupRepo(t)
	sig := newPendingSignal(1, "EUR/USD")
	assert.NoError(t, repo.Create(sig))

	// Act
	err := repo.MarkOpened(sig.ID, 1.0970)

	// Assert
	assert.NoError(t, err)
	active, _ := repo.ListActive()
	assert.Len(t, active, 1)
	assert.Equal(t, models.StatusOpen, active[0].Status)
	assert.NotNil(t, active[0].OpenPrice)
	assert.Equal(t, 1.0970, *active[0].OpenPrice)
	assert.Nil(t, active[0].ClosePrice)
	assert.Nil(t, active[0].Pnl)
}

func TestMarkOpened_RejectsNonPendingRecord(t *testing.T) {
	// Arrange
	repo := setupRepo(t)
	sig := newPendingSignal(1, "EUR/USD")
	assert.NoError(t, repo.Create(sig))
	assert.NoError(t, repo.MarkOpened(sig.ID, 1.0970))

	// Act: a second open attempt must not clobber the first.
	err := repo.MarkOpened(sig.ID, 1.0999)

	// Assert
	assert.Error(t, err)
	active, _ := repo.ListActive()
	assert.Equal(t, 1.0970, *active[0].OpenPrice)
}

func TestMarkClosed_SetsTerminalFields(t *testing.T) {
	// Arrange
	repo := setupRepo(t)
	sig := newPendingSignal(1, "EUR/USD")
	assert.NoError(t, repo.Create(sig))
	assert.NoError(t, repo.MarkOpened(sig.ID, 1.0970))

	// Act
	err := repo.MarkClosed(sig.ID, models.StatusClosedTP, 1.1100, 0.0130)

	// Assert
	assert.NoError(t, err)
	active, _ := repo.ListActive()
	assert.Empty(t, active)

	closed, err := repo.ClosedForUser(1)
	assert.NoError(t, err)
	assert.Len(t, closed, 1)
	assert.Equal(t, models.StatusClosedTP, closed[0].Status)
	assert.Equal(t, 1.1100, *closed[0].ClosePrice)
	assert.InDelta(t, 0.0130, *closed[0].Pnl, 1e-9)
	assert.NotNil(t, closed[0].ClosedAt)
	assert.NotNil(t, closed[0].OpenPrice)
}

func TestMarkClosed_RejectsInvalidStatusAndNonOpenRecords(t *testing.T) {
	// Arrange
	repo := setupRepo(t)
	sig := newPendingSignal(1, "EUR/USD")
	assert.NoError(t, repo.Create(sig))

	// Act + Assert: pending records cannot be closed directly.
	assert.Error(t, repo.MarkClosed(sig.ID, models.StatusClosedSL, 1.0900, -0.007))
	assert.Error(t, repo.MarkClosed(sig.ID, "pending", 1.0900, 0))

	active, _ := repo.ListActive()
	assert.Equal(t, models.StatusPending, active[0].Status)
}

func TestSummaryForUser_CountsPerDirection(t *testing.T) {
	// Arrange
	repo := setupRepo(t)
	assert.NoError(t, repo.Create(newPendingSignal(1, "EUR/USD")))
	assert.NoError(t, repo.Create(newPendingSignal(1, "GBP/USD")))

	sell := newPendingSignal(1, "USD/JPY")
	sell.Direction = models.DirectionSell
	assert.NoError(t, repo.Create(sell))

	tech := newPendingSignal(1, "EUR/USD")
	tech.Source = models.SourceTechnical
	assert.NoError(t, repo.Create(tech))

	// Act
	counts, err := repo.SummaryForUser(1, models.SourceAI)

	// Assert
	assert.NoError(t, err)
	byDirection := map[string]int64{}
	for _, c := range counts {
		byDirection[c.Direction] = c.Count
	}
	assert.Equal(t, int64(2), byDirection[models.DirectionBuy])
	assert.Equal(t, int64(1), byDirection[models.DirectionSell])
}
