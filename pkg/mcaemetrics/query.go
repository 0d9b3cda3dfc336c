package mcaemetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// CacheMetrics is the read-side aggregate a host pulls back out of
// Prometheus to answer "how is RAMR doing", generalized from the
// teacher's StoryMetrics (pkg/metrics/query.go).
type CacheMetrics struct {
	CacheType string  `json:"cache_type"`
	Gets      int64   `json:"gets"`
	Hits      int64   `json:"hits"`
	HitRate   float64 `json:"hit_rate"`
}

// ExtractionMetrics is the read-side aggregate for the Knowledge
// Extractor's acceptance rate.
type ExtractionMetrics struct {
	ArtifactType string  `json:"artifact_type"`
	Scored       int64   `json:"scored"`
	Accepted     int64   `json:"accepted"`
	AcceptRate   float64 `json:"accept_rate"`
}

// QueryService queries aggregated MCAE metrics back out of Prometheus,
// generalized from the teacher's QueryService (pkg/metrics/query.go):
// same api.Client/v1.API construction, same instant-query-then-extract-
// first-sample shape, retargeted at the ramr_*/extraction_* series.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService dials a Prometheus server at prometheusURL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}
	return &QueryService{client: client, queryAPI: v1.NewAPI(client)}, nil
}

// CacheHitRate returns aggregated get/hit counts and the derived hit
// rate for a single RAMR cache type ("memory", "ramr", "durable").
func (q *QueryService) CacheHitRate(ctx context.Context, cacheType string) (*CacheMetrics, error) {
	metrics := &CacheMetrics{CacheType: cacheType}

	gets, err := q.scalar(ctx, fmt.Sprintf(`sum(ramr_gets_total{cache_type=%q})`, cacheType))
	if err != nil {
		return nil, fmt.Errorf("query ramr_gets_total: %w", err)
	}
	metrics.Gets = gets

	hits, err := q.scalar(ctx, fmt.Sprintf(`sum(ramr_hits_total{cache_type=%q})`, cacheType))
	if err != nil {
		return nil, fmt.Errorf("query ramr_hits_total: %w", err)
	}
	metrics.Hits = hits

	if metrics.Gets > 0 {
		metrics.HitRate = float64(metrics.Hits) / float64(metrics.Gets)
	}
	return metrics, nil
}

// ExtractionAcceptRate returns the scored/accepted counts and derived
// acceptance rate for a single artifact type.
func (q *QueryService) ExtractionAcceptRate(ctx context.Context, artifactType string) (*ExtractionMetrics, error) {
	metrics := &ExtractionMetrics{ArtifactType: artifactType}

	scored, err := q.scalar(ctx, fmt.Sprintf(`sum(extraction_scored_total{artifact_type=%q})`, artifactType))
	if err != nil {
		return nil, fmt.Errorf("query extraction_scored_total: %w", err)
	}
	metrics.Scored = scored

	accepted, err := q.scalar(ctx, fmt.Sprintf(`sum(extraction_accepted_total{artifact_type=%q})`, artifactType))
	if err != nil {
		return nil, fmt.Errorf("query extraction_accepted_total: %w", err)
	}
	metrics.Accepted = accepted

	if metrics.Scored > 0 {
		metrics.AcceptRate = float64(metrics.Accepted) / float64(metrics.Scored)
	}
	return metrics, nil
}

// scalar runs an instant query and extracts the first sample's value,
// returning 0 when the series has no data yet (a fresh install).
func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}
