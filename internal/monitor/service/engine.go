package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/config"
	"tradesignal/internal/monitor/dto"
	"tradesignal/internal/monitor/repository"
	"tradesignal/pkg/logger"
	"tradesignal/pkg/retry"
	"tradesignal/pkg/telegram"
	"tradesignal/pkg/utils"

	"gorm.io/datatypes"
)

// OracleFailureReason prefixes the Reason of fallback decisions recorded
// when the judgment oracle failed, so the failure itself stays auditable.
const OracleFailureReason = "oracle failure"

// DecisionEngine drives one monitoring cycle: sample prices, gate small
// moves, consult the oracle on significant ones, persist every verdict and
// dispatch the alerts it approves.
type DecisionEngine interface {
	RunCycle(ctx context.Context) error
}

type decisionEngine struct {
	cfg       *config.Config
	log       *logger.Logger
	samples   repository.PriceSampleRepository
	decisions repository.DecisionRepository
	alerts    repository.AlertRepository
	source    repository.PriceSourceRepository
	oracle    repository.JudgmentRepository
	notifier  telegram.Notifier
}

// NewDecisionEngine creates a new DecisionEngine.
func NewDecisionEngine(
	cfg *config.Config,
	log *logger.Logger,
	samples repository.PriceSampleRepository,
	decisions repository.DecisionRepository,
	alerts repository.AlertRepository,
	source repository.PriceSourceRepository,
	oracle repository.JudgmentRepository,
	notifier telegram.Notifier,
) DecisionEngine {
	return &decisionEngine{
		cfg:       cfg,
		log:       log,
		samples:   samples,
		decisions: decisions,
		alerts:    alerts,
		source:    source,
		oracle:    oracle,
		notifier:  notifier,
	}
}

// RunCycle evaluates every configured asset once. Sampling happens first
// for all assets so the correlation context handed to the oracle is a
// consistent snapshot; evaluation then proceeds per asset independently.
// Failures never cross asset boundaries.
func (e *decisionEngine) RunCycle(ctx context.Context) error {
	started := time.Now()
	e.log.InfoContext(ctx, "Starting price check cycle",
		logger.IntField("assets", len(e.cfg.Monitor.Assets)),
	)

	deltas := e.collectSamples(ctx)

	for _, delta := range deltas {
		// Shutdown is only honored between asset evaluations, never in
		// the middle of one asset's decision sequence.
		if err := ctx.Err(); err != nil {
			e.log.Warn("Cycle interrupted before completing all assets", logger.ErrorField(err))
			return err
		}

		if math.Abs(delta.PctChange) < e.cfg.Monitor.PriceChangeThreshold {
			e.log.DebugContext(ctx, "Significance gate closed",
				logger.StringField("asset_id", delta.AssetID),
				logger.Float64Field("pct_change", delta.PctChange),
				logger.Float64Field("threshold", e.cfg.Monitor.PriceChangeThreshold),
			)
			continue
		}

		e.evaluateAsset(ctx, delta, deltas)
	}

	e.log.InfoContext(ctx, "Price check cycle completed",
		logger.DurationField("elapsed", time.Since(started)),
	)
	return nil
}

// collectSamples fetches and persists one sample per asset and returns the
// deltas against each asset's previous sample. Assets without history yield
// no delta; assets whose fetch or persist fails are skipped for this cycle.
func (e *decisionEngine) collectSamples(ctx context.Context) []dto.PriceDelta {
	retryCfg := retry.Config{
		MaxAttempts: e.cfg.Monitor.MaxRetries,
		BaseDelay:   e.cfg.Monitor.RetryBackoffBase,
	}

	deltas := make([]dto.PriceDelta, 0, len(e.cfg.Monitor.Assets))
	for _, assetID := range e.cfg.Monitor.Assets {
		if err := ctx.Err(); err != nil {
			e.log.Warn("Sampling interrupted", logger.ErrorField(err))
			break
		}

		var quote *dto.PriceQuote
		err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
			fetched, fetchErr := e.source.Fetch(ctx, assetID)
			if fetchErr != nil {
				return fetchErr
			}
			quote = fetched
			return nil
		})
		if err != nil {
			e.log.Error("Failed to fetch price, skipping asset this cycle",
				logger.ErrorField(err),
				logger.StringField("asset_id", assetID),
			)
			continue
		}

		// Read the previous sample before inserting the new one; the
		// delta is always against the single most recent prior sample.
		previous, prevErr := e.samples.GetLast(ctx, assetID)

		sample := &entity.PriceSample{
			AssetID:     quote.AssetID,
			Price:       quote.Price,
			Trend24hPct: quote.Trend24hPct,
			ObservedAt:  quote.ObservedAt,
		}
		if err := e.samples.Create(ctx, sample); err != nil {
			// Without durable history the downstream steps have nothing
			// to stand on; abort this asset only.
			e.log.Error("Failed to persist price sample, skipping asset this cycle",
				logger.ErrorField(err),
				logger.StringField("asset_id", assetID),
			)
			continue
		}

		if prevErr != nil {
			e.log.Error("Failed to load previous sample, skipping delta for asset",
				logger.ErrorField(prevErr),
				logger.StringField("asset_id", assetID),
			)
			continue
		}
		if previous == nil || previous.Price <= 0 {
			e.log.InfoContext(ctx, "No prior sample for asset, recording baseline only",
				logger.StringField("asset_id", assetID),
			)
			continue
		}

		pctChange := (quote.Price - previous.Price) / previous.Price * 100
		deltas = append(deltas, dto.PriceDelta{
			AssetID:       assetID,
			PreviousPrice: previous.Price,
			CurrentPrice:  quote.Price,
			PctChange:     pctChange,
			Trend24hPct:   quote.Trend24hPct,
			ObservedAt:    quote.ObservedAt,
		})

		e.log.InfoContext(ctx, "Sampled asset",
			logger.StringField("asset_id", assetID),
			logger.Float64Field("price", quote.Price),
			logger.Float64Field("pct_change", pctChange),
		)
	}

	return deltas
}

// evaluateAsset runs steps 5-9 of the cycle for one asset whose movement
// breached the significance gate: oracle consultation, decision persistence
// and, when approved, alert dispatch.
func (e *decisionEngine) evaluateAsset(ctx context.Context, delta dto.PriceDelta, snapshot []dto.PriceDelta) {
	octx := e.buildOracleContext(ctx, delta, snapshot)
	verdict := e.consultOracle(ctx, octx)

	contextJSON, err := json.Marshal(octx)
	if err != nil {
		e.log.Error("Failed to serialize oracle context for decision record",
			logger.ErrorField(err),
			logger.StringField("asset_id", delta.AssetID),
		)
		contextJSON = nil
	}

	decision := &entity.Decision{
		AssetID:       delta.AssetID,
		ObservedAt:    delta.ObservedAt,
		PctChange:     delta.PctChange,
		ShouldAlert:   verdict.ShouldAlert,
		Reason:        verdict.Reason,
		Confidence:    verdict.Confidence,
		OracleContext: datatypes.JSON(contextJSON),
	}
	if err := e.decisions.Create(ctx, decision); err != nil {
		e.log.Error("Failed to persist decision",
			logger.ErrorField(err),
			logger.StringField("asset_id", delta.AssetID),
		)
		return
	}

	if !verdict.ShouldAlert {
		e.log.InfoContext(ctx, "Oracle declined to alert",
			logger.StringField("asset_id", delta.AssetID),
			logger.StringField("reason", verdict.Reason),
			logger.Float64Field("confidence", verdict.Confidence),
		)
		return
	}

	payload := &dto.AlertPayload{
		AssetID:    delta.AssetID,
		Price:      delta.CurrentPrice,
		PctChange:  delta.PctChange,
		Reason:     verdict.Reason,
		Confidence: verdict.Confidence,
	}

	retryCfg := retry.Config{
		MaxAttempts: e.cfg.Telegram.MaxRetries,
		BaseDelay:   e.cfg.Monitor.RetryBackoffBase,
	}
	var deliveryRef string
	err = retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		ref, sendErr := e.notifier.SendAlert(ctx, payload)
		if sendErr != nil {
			return sendErr
		}
		deliveryRef = ref
		return nil
	})
	if err != nil {
		// The decision stays on record; no alert record is written for a
		// message the user never received.
		e.log.Error("Alert delivery failed, decision kept without alert",
			logger.ErrorField(err),
			logger.StringField("asset_id", delta.AssetID),
		)
		return
	}

	alert := &entity.Alert{
		DecisionID:  utils.ToPointer(decision.ID),
		AssetID:     delta.AssetID,
		Price:       delta.CurrentPrice,
		PctChange:   delta.PctChange,
		Reason:      verdict.Reason,
		Confidence:  verdict.Confidence,
		DeliveryRef: deliveryRef,
		SentAt:      time.Now().UTC(),
		Feedback:    entity.FeedbackNone,
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		e.log.Error("Alert delivered but could not be recorded",
			logger.ErrorField(err),
			logger.StringField("asset_id", delta.AssetID),
			logger.StringField("delivery_ref", deliveryRef),
		)
		return
	}

	e.log.InfoContext(ctx, "Alert sent",
		logger.StringField("asset_id", delta.AssetID),
		logger.Float64Field("price", delta.CurrentPrice),
		logger.Float64Field("pct_change", delta.PctChange),
		logger.StringField("delivery_ref", deliveryRef),
	)
}

// buildOracleContext assembles everything the oracle judges for one asset:
// the movement itself, the peer deltas from the same cycle snapshot and the
// asset's recent feedback history.
func (e *decisionEngine) buildOracleContext(ctx context.Context, delta dto.PriceDelta, snapshot []dto.PriceDelta) *dto.OracleContext {
	history, err := e.alerts.GetRecent(ctx, delta.AssetID, e.cfg.Monitor.FeedbackHistoryLimit)
	if err != nil {
		// An empty history is a valid oracle input; degrade rather than
		// dropping the evaluation.
		e.log.Error("Failed to load feedback history, evaluating without it",
			logger.ErrorField(err),
			logger.StringField("asset_id", delta.AssetID),
		)
		history = nil
	}

	feedback := make([]dto.FeedbackRecord, 0, len(history))
	for _, alert := range history {
		feedback = append(feedback, dto.FeedbackRecord{
			AssetID:    alert.AssetID,
			PctChange:  alert.PctChange,
			Confidence: alert.Confidence,
			Feedback:   alert.Feedback,
		})
	}

	peers := make([]dto.PriceDelta, 0, len(snapshot))
	for _, other := range snapshot {
		if other.AssetID != delta.AssetID {
			peers = append(peers, other)
		}
	}

	return &dto.OracleContext{
		AssetID:         delta.AssetID,
		Price:           delta.CurrentPrice,
		PctChange:       delta.PctChange,
		Trend24hPct:     delta.Trend24hPct,
		PeerDeltas:      peers,
		FeedbackHistory: feedback,
	}
}

// consultOracle asks the judgment oracle for a verdict. Oracle failures
// degrade to a should_alert=false decision with a failure-marked reason;
// they never abort the cycle.
func (e *decisionEngine) consultOracle(ctx context.Context, octx *dto.OracleContext) *dto.OracleDecision {
	verdict, err := e.oracle.Evaluate(ctx, octx)
	if err != nil {
		e.log.Error("Oracle evaluation failed, falling back to no-alert decision",
			logger.ErrorField(err),
			logger.StringField("asset_id", octx.AssetID),
		)
		return &dto.OracleDecision{
			ShouldAlert: false,
			Reason:      fmt.Sprintf("%s: %v", OracleFailureReason, err),
			Confidence:  0,
		}
	}

	return verdict
}
