package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A fresh connection would see a fresh in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&entity.PriceSample{}, &entity.Decision{}, &entity.Alert{}))
	return db
}

func seedAlert(t *testing.T, repo AlertRepository, deliveryRef string) {
	t.Helper()
	err := repo.Create(context.Background(), &entity.Alert{
		AssetID:     "bitcoin",
		Price:       50000,
		PctChange:   4.2,
		Reason:      "breakout",
		Confidence:  0.8,
		DeliveryRef: deliveryRef,
		SentAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestAlertCreateDefaultsFeedbackToNone(t *testing.T) {
	repo := NewAlertRepository(newTestDB(t))
	seedAlert(t, repo, "ref-1")

	alert, err := repo.FindByDeliveryRef(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, entity.FeedbackNone, alert.Feedback)
	assert.Nil(t, alert.FeedbackAt)
}

func TestApplyFeedbackFirstWriteWins(t *testing.T) {
	repo := NewAlertRepository(newTestDB(t))
	seedAlert(t, repo, "ref-1")

	applied, err := repo.ApplyFeedback(context.Background(), "ref-1", entity.FeedbackPositive)
	require.NoError(t, err)
	assert.True(t, applied)

	// The second, contradicting event must not overwrite the first.
	applied, err = repo.ApplyFeedback(context.Background(), "ref-1", entity.FeedbackNegative)
	require.NoError(t, err)
	assert.False(t, applied)

	alert, err := repo.FindByDeliveryRef(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, entity.FeedbackPositive, alert.Feedback)
	assert.NotNil(t, alert.FeedbackAt)
}

func TestApplyFeedbackUnknownRef(t *testing.T) {
	repo := NewAlertRepository(newTestDB(t))

	_, err := repo.ApplyFeedback(context.Background(), "ghost", entity.FeedbackPositive)
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestGetRecentReturnsNewestFirstForAsset(t *testing.T) {
	db := newTestDB(t)
	repo := NewAlertRepository(db)

	base := time.Now().UTC()
	for i, ref := range []string{"ref-old", "ref-mid", "ref-new"} {
		err := repo.Create(context.Background(), &entity.Alert{
			AssetID:     "bitcoin",
			DeliveryRef: ref,
			SentAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.Create(context.Background(), &entity.Alert{
		AssetID:     "ethereum",
		DeliveryRef: "ref-other",
		SentAt:      base.Add(time.Hour),
	}))

	alerts, err := repo.GetRecent(context.Background(), "bitcoin", 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "ref-new", alerts[0].DeliveryRef)
	assert.Equal(t, "ref-mid", alerts[1].DeliveryRef)
}

func TestFeedbackStatsCountsOnlyResolvedAlerts(t *testing.T) {
	repo := NewAlertRepository(newTestDB(t))

	seedAlert(t, repo, "ref-1")
	seedAlert(t, repo, "ref-2")
	seedAlert(t, repo, "ref-3")

	_, err := repo.ApplyFeedback(context.Background(), "ref-1", entity.FeedbackPositive)
	require.NoError(t, err)
	_, err = repo.ApplyFeedback(context.Background(), "ref-2", entity.FeedbackNegative)
	require.NoError(t, err)

	stats, err := repo.FeedbackStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Positive)
	assert.Equal(t, int64(1), stats.Negative)
}

func TestDecisionCreatePersistsOracleContext(t *testing.T) {
	repo := NewDecisionRepository(newTestDB(t))

	snapshot, err := json.Marshal(dto.OracleContext{
		AssetID:   "bitcoin",
		Price:     63000,
		PctChange: 4.5,
		PeerDeltas: []dto.PriceDelta{
			{AssetID: "ethereum", CurrentPrice: 3400, PctChange: 3.8},
		},
	})
	require.NoError(t, err)

	err = repo.Create(context.Background(), &entity.Decision{
		AssetID:       "bitcoin",
		ObservedAt:    time.Now().UTC(),
		PctChange:     4.5,
		ShouldAlert:   true,
		Reason:        "breakout",
		Confidence:    0.8,
		OracleContext: datatypes.JSON(snapshot),
	})
	require.NoError(t, err)

	decisions, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	var restored dto.OracleContext
	require.NoError(t, json.Unmarshal(decisions[0].OracleContext, &restored))
	assert.Equal(t, "bitcoin", restored.AssetID)
	require.Len(t, restored.PeerDeltas, 1)
	assert.Equal(t, "ethereum", restored.PeerDeltas[0].AssetID)
}

func TestPriceSampleGetLastReturnsNilWithoutHistory(t *testing.T) {
	repo := NewPriceSampleRepository(newTestDB(t))

	sample, err := repo.GetLast(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, sample)
}

func TestPriceSampleGetLastPicksMostRecentObservation(t *testing.T) {
	db := newTestDB(t)
	repo := NewPriceSampleRepository(db)

	base := time.Now().UTC()
	for i, price := range []float64{100, 105, 103} {
		err := repo.Create(context.Background(), &entity.PriceSample{
			AssetID:    "bitcoin",
			Price:      price,
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	sample, err := repo.GetLast(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.Equal(t, float64(103), sample.Price)
}
