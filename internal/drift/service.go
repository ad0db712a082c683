package drift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pivothunt/internal/metrics"
	"pivothunt/pkg/models"
)

// ErrNoAgents rejects baseline creation without any agents.
var ErrNoAgents = errors.New("baseline requires at least one agent")

// maxBaselineAgents bounds baseline snapshots to the fan-out agent cap.
const maxBaselineAgents = 10

// BaselineStore is the persistence contract the drift service consumes.
type BaselineStore interface {
	SaveBaseline(ctx context.Context, b *models.Baseline) error
	GetBaseline(ctx context.Context, id string) (*models.Baseline, error)
	ListBaselines(ctx context.Context) ([]models.BaselineInfo, error)
	DeleteBaseline(ctx context.Context, id string) error
}

// BaselineComparison is the result of diffing a baseline against a live
// snapshot. ComparedAt records when the live side was captured.
type BaselineComparison struct {
	BaselineID   string                     `json:"baselineId"`
	BaselineName string                     `json:"baselineName"`
	ComparedAt   time.Time                  `json:"comparedAt"`
	Items        []models.BaselineDriftItem `json:"items"`
}

// Service orchestrates snapshot collection and the diff engines.
type Service struct {
	source  SnapshotSource
	store   BaselineStore
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// NewService creates a drift service.
func NewService(source SnapshotSource, store BaselineStore, m *metrics.Metrics, newID func() string) *Service {
	return &Service{
		source:  source,
		store:   store,
		metrics: m,
		now:     time.Now,
		newID:   newID,
	}
}

// Compare collects one category for the given agents and diffs them
// against each other.
func (s *Service) Compare(ctx context.Context, agentIDs []string, category string) ([]models.DriftItem, error) {
	if len(agentIDs) < MinCompareAgents || len(agentIDs) > MaxCompareAgents {
		return nil, fmt.Errorf("%w: got %d", ErrAgentRange, len(agentIDs))
	}
	if _, ok := categorySpecs[category]; !ok {
		return nil, fmt.Errorf("unknown inventory category %q", category)
	}
	snapshot, err := s.source.Snapshot(ctx, agentIDs, category)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DriftCompares.Inc()
	}
	return CompareAgents(agentIDs, snapshot, category)
}

// CreateBaseline captures a snapshot of the given agents and persists it.
func (s *Service) CreateBaseline(ctx context.Context, name, description string, agentIDs []string) (*models.Baseline, error) {
	if len(agentIDs) == 0 {
		return nil, ErrNoAgents
	}
	if len(agentIDs) > maxBaselineAgents {
		return nil, fmt.Errorf("baseline agent list exceeds %d agents", maxBaselineAgents)
	}
	if name == "" {
		return nil, errors.New("baseline name is empty")
	}

	data, err := s.source.SnapshotAll(ctx, agentIDs)
	if err != nil {
		return nil, err
	}

	baseline := &models.Baseline{
		ID:           s.newID(),
		Name:         name,
		Description:  description,
		AgentIDs:     agentIDs,
		SnapshotData: data,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.SaveBaseline(ctx, baseline); err != nil {
		return nil, err
	}
	return baseline, nil
}

// CompareBaseline recollects the baseline's agents live and diffs against
// the stored snapshot.
func (s *Service) CompareBaseline(ctx context.Context, id string) (*BaselineComparison, error) {
	baseline, err := s.store.GetBaseline(ctx, id)
	if err != nil {
		return nil, err
	}

	current, err := s.source.SnapshotAll(ctx, baseline.AgentIDs)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DriftCompares.Inc()
	}

	names := s.source.AgentNames(ctx, baseline.AgentIDs)
	return &BaselineComparison{
		BaselineID:   baseline.ID,
		BaselineName: baseline.Name,
		ComparedAt:   s.now().UTC(),
		Items:        DiffBaseline(baseline.SnapshotData, current, names),
	}, nil
}

// GetBaseline loads one stored baseline with its snapshot payload.
func (s *Service) GetBaseline(ctx context.Context, id string) (*models.Baseline, error) {
	return s.store.GetBaseline(ctx, id)
}

// ListBaselines returns stored baseline metadata.
func (s *Service) ListBaselines(ctx context.Context) ([]models.BaselineInfo, error) {
	return s.store.ListBaselines(ctx)
}

// DeleteBaseline removes a stored baseline.
func (s *Service) DeleteBaseline(ctx context.Context, id string) error {
	return s.store.DeleteBaseline(ctx, id)
}
