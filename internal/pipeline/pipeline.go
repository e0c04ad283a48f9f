// Package pipeline orchestrates the ingest-classify-persist flow: feed
// observations into the object store, risk records out of it, alerts to
// downstream consumers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/perihelion-labs/neo-watch/internal/domain"
	"github.com/perihelion-labs/neo-watch/internal/observability"
)

// FeedClient fetches observations from the NeoWs feed.
type FeedClient interface {
	FetchRange(ctx context.Context, startDate, endDate string) (map[string][]domain.Observation, error)
	FetchByDate(ctx context.Context, date string) ([]domain.Observation, error)
}

// ObjectStore persists raw observations.
type ObjectStore interface {
	Upsert(obs domain.Observation) error
	ListAll() ([]domain.Observation, error)
	Ping() error
}

// RiskStore persists derived risk records.
type RiskStore interface {
	Save(rec domain.RiskRecord) error
	Replace(records []domain.RiskRecord) error
	ListByTier(tiers ...domain.RiskTier) ([]domain.RiskRecord, error)
}

// AlertPublisher pushes HIGH/CRITICAL records to downstream consumers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, records []domain.RiskRecord) error
}

// PersistMode selects what a classify-and-persist run does with records from
// earlier runs. Both semantics exist on purpose; callers choose explicitly.
type PersistMode string

const (
	// ModeAppend adds one record per object, preserving prior runs.
	ModeAppend PersistMode = "append"
	// ModeReplace clears risk storage before writing the new run.
	ModeReplace PersistMode = "replace"
)

// IngestResult counts the outcome of one feed ingestion run.
type IngestResult struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// PersistResult counts the outcome of one classify-and-persist run.
type PersistResult struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// Service wires the feed, the stores, and the optional alert publisher.
type Service struct {
	feed    FeedClient
	objects ObjectStore
	risks   RiskStore
	alerts  AlertPublisher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates the pipeline service. Pass a nil publisher to disable alert
// publishing.
func New(feed FeedClient, objects ObjectStore, risks RiskStore, alerts AlertPublisher,
	logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		feed:    feed,
		objects: objects,
		risks:   risks,
		alerts:  alerts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil when the backing store is usable.
func (s *Service) CheckReadiness(_ context.Context) error {
	return s.objects.Ping()
}

// IngestRange fetches the feed for the inclusive date range and upserts every
// observation. Duplicates are counted as skipped and processing continues;
// a feed failure aborts the whole run with domain.ErrUpstreamUnavailable.
func (s *Service) IngestRange(ctx context.Context, startDate, endDate string) (IngestResult, error) {
	byDate, err := s.feed.FetchRange(ctx, startDate, endDate)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s..%s: %w", startDate, endDate, err)
	}

	var result IngestResult
	for date, observations := range byDate {
		for _, obs := range observations {
			switch err := s.objects.Upsert(obs); {
			case err == nil:
				result.Saved++
			case errors.Is(err, domain.ErrDuplicateObject):
				result.Skipped++
			default:
				result.Failed++
				s.logger.Error("upsert observation failed",
					"neo_id", obs.NeoID, "date", date, "error", err)
			}
		}
	}

	s.metrics.ObjectsIngested.Add(float64(result.Saved))
	s.metrics.ObjectsSkipped.Add(float64(result.Skipped))
	s.logger.Info("feed ingestion finished",
		"start_date", startDate, "end_date", endDate,
		"saved", result.Saved, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// ClassifyStored classifies every stored object with the default miss
// distance and returns the records ordered by descending score. Nothing is
// persisted; raw observations are never mutated.
func (s *Service) ClassifyStored(_ context.Context) ([]domain.RiskRecord, error) {
	records, err := s.classifyAll()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	return records, nil
}

// PersistRisks classifies every stored object and writes one record each,
// returning the number written. In append mode a per-record write failure is
// counted and the run continues; replace mode is all-or-nothing because the
// prior records are already gone.
func (s *Service) PersistRisks(ctx context.Context, mode PersistMode) (PersistResult, error) {
	start := time.Now()

	records, err := s.classifyAll()
	if err != nil {
		return PersistResult{}, err
	}
	s.metrics.ClassifyBatchSize.Observe(float64(len(records)))

	var result PersistResult
	switch mode {
	case ModeReplace:
		if err := s.risks.Replace(records); err != nil {
			return PersistResult{}, fmt.Errorf("replace risk records: %w", err)
		}
		result.Saved = len(records)
	case ModeAppend:
		for _, rec := range records {
			if err := s.risks.Save(rec); err != nil {
				result.Failed++
				s.logger.Error("save risk record failed", "neo_id", rec.NeoID, "error", err)
				continue
			}
			result.Saved++
		}
	default:
		return PersistResult{}, fmt.Errorf("unknown persist mode %q", mode)
	}

	s.metrics.RecordsPersisted.Add(float64(result.Saved))
	s.metrics.ClassifyBatchDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("risk persistence finished",
		"mode", mode, "saved", result.Saved, "failed", result.Failed)

	s.publishAlerts(ctx, records)
	return result, nil
}

// ClassifyByDate fetches the given date from the feed and classifies each
// approach with its true miss distance. Results are ephemeral; a feed
// failure yields no partial results.
func (s *Service) ClassifyByDate(ctx context.Context, date string) ([]domain.ApproachRisk, error) {
	observations, err := s.feed.FetchByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", date, err)
	}

	results := make([]domain.ApproachRisk, 0, len(observations))
	for _, obs := range observations {
		results = append(results, domain.ClassifyApproach(obs))
	}
	s.metrics.RisksClassified.Add(float64(len(results)))
	return results, nil
}

// Alerts returns the persisted HIGH and CRITICAL records, score descending,
// read from risk storage at call time.
func (s *Service) Alerts(_ context.Context) ([]domain.RiskRecord, error) {
	return s.risks.ListByTier(domain.TierHigh, domain.TierCritical)
}

func (s *Service) classifyAll() ([]domain.RiskRecord, error) {
	observations, err := s.objects.ListAll()
	if err != nil {
		return nil, fmt.Errorf("list stored objects: %w", err)
	}

	records := make([]domain.RiskRecord, 0, len(observations))
	for _, obs := range observations {
		records = append(records, domain.NewRiskRecord(obs))
	}
	s.metrics.RisksClassified.Add(float64(len(records)))
	return records, nil
}

// publishAlerts pushes the HIGH/CRITICAL slice of a persisted run to the
// alerts topic. Publishing is best-effort: the records are already durable,
// so a broker failure is logged and never propagated.
func (s *Service) publishAlerts(ctx context.Context, records []domain.RiskRecord) {
	if s.alerts == nil {
		return
	}

	var alerting []domain.RiskRecord
	for _, rec := range records {
		if rec.Tier == domain.TierHigh || rec.Tier == domain.TierCritical {
			alerting = append(alerting, rec)
		}
	}
	if len(alerting) == 0 {
		return
	}

	if err := s.alerts.PublishAlerts(ctx, alerting); err != nil {
		s.logger.Error("publish alerts failed", "count", len(alerting), "error", err)
		return
	}
	s.metrics.AlertsPublished.Add(float64(len(alerting)))
}
