package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradesignal/internal/monitor/config"
	"tradesignal/internal/monitor/dto"
	"tradesignal/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// JudgmentRepository converts price-change facts and feedback history into
// an alert verdict.
type JudgmentRepository interface {
	Evaluate(ctx context.Context, octx *dto.OracleContext) (*dto.OracleDecision, error)
}

type geminiRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	genAiClient    *genai.Client
	requestLimiter *rate.Limiter
}

// NewGeminiRepository creates a JudgmentRepository backed by the Google
// Gemini API.
func NewGeminiRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) JudgmentRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	return &geminiRepository{
		cfg:            cfg,
		log:            log,
		genAiClient:    genAiClient,
		requestLimiter: requestLimiter,
	}
}

func (r *geminiRepository) Evaluate(ctx context.Context, octx *dto.OracleContext) (*dto.OracleDecision, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: wait for request limit: %v", dto.ErrOracleUnavailable, err)
	}

	prompt := BuildAlertJudgmentPrompt(octx)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.7),
		MaxOutputTokens:  500,
		ResponseMIMEType: "application/json",
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Gemini.Timeout)
	defer cancel()

	resp, err := r.genAiClient.Models.GenerateContent(callCtx, r.cfg.Gemini.Model, contents, genCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", dto.ErrOracleTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", dto.ErrOracleUnavailable, err)
	}

	decision, err := parseOracleDecision(resp.Text())
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to parse oracle response",
			logger.ErrorField(err),
			logger.StringField("asset_id", octx.AssetID),
		)
		return nil, fmt.Errorf("%w: %v", dto.ErrOracleUnavailable, err)
	}

	r.log.InfoContext(ctx, "Oracle verdict",
		logger.StringField("asset_id", octx.AssetID),
		logger.Field("should_alert", decision.ShouldAlert),
		logger.Float64Field("confidence", decision.Confidence),
	)

	return decision, nil
}

// parseOracleDecision validates the strict JSON contract of the oracle
// response and clamps confidence into [0, 1].
func parseOracleDecision(raw string) (*dto.OracleDecision, error) {
	jsonString := strings.TrimSpace(raw)
	jsonString = strings.Trim(jsonString, "`json\n`")

	var parsed struct {
		ShouldAlert *bool    `json:"should_alert"`
		Reason      *string  `json:"reason"`
		Confidence  *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(jsonString), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oracle decision: %w", err)
	}
	if parsed.ShouldAlert == nil || parsed.Reason == nil || parsed.Confidence == nil {
		return nil, fmt.Errorf("oracle decision missing required fields: %s", jsonString)
	}

	confidence := *parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &dto.OracleDecision{
		ShouldAlert: *parsed.ShouldAlert,
		Reason:      *parsed.Reason,
		Confidence:  confidence,
	}, nil
}
