package hunt

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"pivothunt/internal/backend"
	"pivothunt/internal/logger"
	"pivothunt/internal/metrics"
	"pivothunt/internal/query"
	"pivothunt/pkg/models"
)

const (
	// SourcesSearched is the fixed number of source branches per hunt,
	// reported regardless of outcome.
	SourcesSearched = 8

	// archiveResultCap bounds archive-index searches to keep the
	// secondary source cheap.
	archiveResultCap = 50

	// apiResultCap bounds each paginated API listing.
	apiResultCap = 20
)

// Config configures the hunt service.
type Config struct {
	Search        backend.SearchBackend
	Records       backend.RecordBackend
	Metrics       *metrics.Metrics
	AlertsIndex   string
	ArchivesIndex string
}

// Service runs concurrent multi-source hunts.
type Service struct {
	search        backend.SearchBackend
	records       backend.RecordBackend
	metrics       *metrics.Metrics
	alertsIndex   string
	archivesIndex string
}

// NewService creates a hunt service.
func NewService(cfg Config) *Service {
	if cfg.AlertsIndex == "" {
		cfg.AlertsIndex = "security-alerts-*"
	}
	if cfg.ArchivesIndex == "" {
		cfg.ArchivesIndex = "security-archives-*"
	}
	return &Service{
		search:        cfg.Search,
		records:       cfg.Records,
		metrics:       cfg.Metrics,
		alertsIndex:   cfg.AlertsIndex,
		archivesIndex: cfg.ArchivesIndex,
	}
}

type sourceBranch struct {
	id    string
	label string
	run   func(ctx context.Context) ([]models.Event, int, error)
}

type branchOutcome struct {
	result models.SourceResult
	err    error
}

// Hunt validates the query, resolves the agent set, and fans out to all
// source branches concurrently. Branch failures degrade to zero hits; the
// aggregate never fails after validation passes.
func (s *Service) Hunt(ctx context.Context, q models.IndicatorQuery, explicitAgents []string) (*models.HuntResult, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	agents, err := ResolveAgents(ctx, s.records, explicitAgents)
	if err != nil {
		return nil, err
	}
	spec := query.Translate(q)

	if s.metrics != nil {
		s.metrics.HuntsTotal.Inc()
	}

	start := time.Now()
	branches := s.branches(q, spec, agents)
	outcomes := make([]branchOutcome, len(branches))

	var wg sync.WaitGroup
	for i, b := range branches {
		wg.Add(1)
		go func(i int, b sourceBranch) {
			defer wg.Done()
			branchStart := time.Now()
			matches, count, err := b.run(ctx)
			elapsed := time.Since(branchStart)
			if s.metrics != nil {
				s.metrics.SourceDuration.WithLabelValues(b.id).Observe(elapsed.Seconds())
			}
			outcomes[i] = branchOutcome{
				result: models.SourceResult{
					SourceID:     b.id,
					Label:        b.label,
					Matches:      matches,
					Count:        count,
					SearchTimeMs: elapsed.Milliseconds(),
				},
				err: err,
			}
		}(i, b)
	}
	wg.Wait()

	// Single conversion point: a failed branch contributes zero hits and
	// is logged, never propagated.
	sources := make([]models.SourceResult, 0, len(outcomes))
	totalHits := 0
	for i, oc := range outcomes {
		if oc.err != nil {
			logger.Warnf("Hunt source %s failed: %v", branches[i].id, oc.err)
			if s.metrics != nil {
				s.metrics.SourceFailures.WithLabelValues(branches[i].id).Inc()
			}
			continue
		}
		if oc.result.Count <= 0 {
			continue
		}
		sources = append(sources, oc.result)
		totalHits += oc.result.Count
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].SourceID < sources[j].SourceID
	})

	agentsSearched := agents
	if agentsSearched == nil {
		agentsSearched = []string{}
	}

	return &models.HuntResult{
		Query:           spec.Text,
		Type:            q.Type,
		TimeRange:       models.TimeRange{From: spec.TimeFrom, To: spec.TimeTo},
		TotalHits:       totalHits,
		TotalTimeMs:     time.Since(start).Milliseconds(),
		SourcesSearched: SourcesSearched,
		SourcesWithHits: len(sources),
		AgentsSearched:  agentsSearched,
		Sources:         sources,
	}, nil
}

func (s *Service) branches(q models.IndicatorQuery, spec query.Spec, agents []string) []sourceBranch {
	archiveSpec := spec
	if archiveSpec.Size > archiveResultCap {
		archiveSpec.Size = archiveResultCap
	}

	return []sourceBranch{
		{
			id:    "indexer-alerts",
			label: "Alerts",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				return s.searchIndex(ctx, s.alertsIndex, spec)
			},
		},
		{
			id:    "indexer-archives",
			label: "Archives",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				return s.searchIndex(ctx, s.archivesIndex, archiveSpec)
			},
		},
		{
			id:    "api-agents",
			label: "Agents",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				return s.searchRecords(ctx, "api-agents", "/agents", map[string]string{
					"search": spec.Text,
					"limit":  strconv.Itoa(apiResultCap),
				})
			},
		},
		{
			id:    "api-rules",
			label: "Rules",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				params := map[string]string{"limit": strconv.Itoa(apiResultCap)}
				if q.Type == models.IndicatorRuleID {
					params["rule_ids"] = spec.ExactValue
				} else {
					params["search"] = spec.Text
				}
				return s.searchRecords(ctx, "api-rules", "/rules", params)
			},
		},
		{
			id:    "api-vulnerabilities",
			label: "Vulnerabilities",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				return s.searchPerAgent(ctx, "api-vulnerabilities", agents, func(agentID string) (string, map[string]string) {
					return "/vulnerability/" + agentID, map[string]string{
						"search": spec.Text,
						"limit":  strconv.Itoa(apiResultCap),
					}
				})
			},
		},
		{
			id:    "api-fim",
			label: "File integrity",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				return s.searchPerAgent(ctx, "api-fim", agents, func(agentID string) (string, map[string]string) {
					params := map[string]string{"limit": strconv.Itoa(apiResultCap)}
					switch q.Type {
					case models.IndicatorHash:
						params["hash"] = spec.Text
					case models.IndicatorFilename:
						params["file"] = spec.Text
					default:
						params["search"] = spec.Text
					}
					return "/syscheck/" + agentID, params
				})
			},
		},
		{
			id:    "api-mitre",
			label: "MITRE techniques",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				params := map[string]string{"limit": strconv.Itoa(apiResultCap)}
				if q.Type == models.IndicatorMitreID {
					params["q"] = "external_id=" + spec.ExactValue
				} else {
					params["search"] = spec.Text
				}
				return s.searchRecords(ctx, "api-mitre", "/mitre/techniques", params)
			},
		},
		{
			id:    "api-manager-logs",
			label: "Manager logs",
			run: func(ctx context.Context) ([]models.Event, int, error) {
				return s.searchRecords(ctx, "api-manager-logs", "/manager/logs", map[string]string{
					"search": spec.Text,
					"limit":  strconv.Itoa(apiResultCap),
				})
			},
		},
	}
}

func (s *Service) searchIndex(ctx context.Context, index string, spec query.Spec) ([]models.Event, int, error) {
	if s.search == nil {
		return nil, 0, fmt.Errorf("search backend not configured")
	}
	res, err := s.search.Search(ctx, index, spec)
	if err != nil {
		return nil, 0, err
	}
	return res.Hits, res.Total, nil
}

func (s *Service) searchRecords(ctx context.Context, sourceID, path string, params map[string]string) ([]models.Event, int, error) {
	if s.records == nil {
		return nil, 0, fmt.Errorf("record backend not configured")
	}
	res, err := s.records.Get(ctx, path, params)
	if err != nil {
		return nil, 0, err
	}
	return backend.EventsFromRecords(sourceID, res.AffectedItems), res.TotalAffectedItems, nil
}

// searchPerAgent fans out one record search per agent. A failure for one
// agent only drops that agent's hits.
func (s *Service) searchPerAgent(ctx context.Context, sourceID string, agents []string, build func(agentID string) (string, map[string]string)) ([]models.Event, int, error) {
	if s.records == nil {
		return nil, 0, fmt.Errorf("record backend not configured")
	}
	if len(agents) == 0 {
		return nil, 0, nil
	}
	if len(agents) > MaxAgents {
		agents = agents[:MaxAgents]
	}

	var (
		mu      sync.Mutex
		matches []models.Event
		total   int
		wg      sync.WaitGroup
	)
	for _, agentID := range agents {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			path, params := build(agentID)
			res, err := s.records.Get(ctx, path, params)
			if err != nil {
				logger.Warnf("Hunt source %s agent %s failed: %v", sourceID, agentID, err)
				return
			}
			events := backend.EventsFromRecords(sourceID+"-"+agentID, res.AffectedItems)
			for i := range events {
				if events[i].Agent.ID == "" {
					events[i].Agent.ID = agentID
				}
			}
			mu.Lock()
			matches = append(matches, events...)
			total += res.TotalAffectedItems
			mu.Unlock()
		}(agentID)
	}
	wg.Wait()
	return matches, total, nil
}
