// Package syncsvc ties discovery, ingestion, and job bookkeeping together
// into the two entry points the HTTP API triggers: an ad-hoc batch over
// caller-supplied roots, and a run over the configured source roots.
package syncsvc

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aborroy/alfresco-lake-bridge/internal/discovery"
	"github.com/aborroy/alfresco-lake-bridge/internal/sourceclient"
)

// sourceLister is the subset of sourceclient.Client discovery.New depends on.
type sourceLister interface {
	ListAllChildren(ctx context.Context, folderID string) ([]sourceclient.Node, error)
}

// Ingester projects one discovered document into the lake and enqueues its
// transformation task.
type Ingester interface {
	Ingest(ctx context.Context, jobID string, node sourceclient.Node, readAuthorities []string) error
}

// JobCounters is the subset of jobs.Registry the sync service drives.
type JobCounters interface {
	IncrementDiscovered(jobID string)
	Complete(jobID string)
}

// Service runs discovery+ingestion for a job, reporting progress and
// terminal status through JobCounters.
type Service struct {
	source          sourceLister
	ingest          Ingester
	jobs            JobCounters
	configuredRoots []discovery.RootConfig
	exclusion       discovery.ExclusionConfig
	log             zerolog.Logger
}

// New constructs a Service. configuredRoots/exclusion back RunConfigured.
func New(source sourceLister, ingest Ingester, jobs JobCounters, configuredRoots []discovery.RootConfig, exclusion discovery.ExclusionConfig, log zerolog.Logger) *Service {
	return &Service{source: source, ingest: ingest, jobs: jobs, configuredRoots: configuredRoots, exclusion: exclusion, log: log}
}

// RunBatch discovers and ingests documents under the caller-supplied roots.
func (s *Service) RunBatch(ctx context.Context, jobID string, roots []discovery.RootConfig, exclusion discovery.ExclusionConfig) {
	s.run(ctx, jobID, roots, exclusion)
}

// RunConfigured discovers and ingests documents under the configured roots.
func (s *Service) RunConfigured(ctx context.Context, jobID string) {
	s.run(ctx, jobID, s.configuredRoots, s.exclusion)
}

func (s *Service) run(ctx context.Context, jobID string, roots []discovery.RootConfig, exclusion discovery.ExclusionConfig) {
	walker := discovery.New(s.source, roots, exclusion)
	err := walker.Stream(ctx, func(node sourceclient.Node) bool {
		s.jobs.IncrementDiscovered(jobID)
		readAuthorities := sourceclient.ExtractReadAuthorities(node)
		if err := s.ingest.Ingest(ctx, jobID, node, readAuthorities); err != nil {
			s.log.Error().Err(err).Str("jobId", jobID).Str("sourceId", node.ID).Msg("ingest failed")
		}
		return true
	})
	if err != nil {
		s.log.Error().Err(err).Str("jobId", jobID).Msg("discovery stream failed")
	}
	s.jobs.Complete(jobID)
}
