// Package store provides typed persistence for every entity in the
// data model (C1): campaigns, rounds, variants, evaluations, policies,
// reports, the agent-decision log, and the tool-access log.
//
// Store is a thin, typed wrapper over the generated ent client. Each
// entity gets its own sub-store exposing the CRUD and targeted query
// operations named in spec.md §4.1; callers never touch the ent
// client directly outside this package.
package store

import (
	"github.com/evoengine/core/ent"
)

// Store aggregates the per-entity stores over a single ent.Client.
type Store struct {
	client *ent.Client

	Campaigns      *CampaignStore
	Rounds         *RoundStore
	Variants       *VariantStore
	Evaluations    *EvaluationStore
	Policies       *PolicyStore
	AgentDecisions *AgentDecisionStore
	ToolAccessLogs *ToolAccessLogStore
	Reports        *ReportStore
}

// New builds a Store over client. blobs may be nil; Reports falls back
// to storing everything inline in that case.
func New(client *ent.Client, blobs ReportBlobStore) *Store {
	return &Store{
		client:         client,
		Campaigns:      &CampaignStore{client: client},
		Rounds:         &RoundStore{client: client},
		Variants:       &VariantStore{client: client},
		Evaluations:    &EvaluationStore{client: client},
		Policies:       &PolicyStore{client: client},
		AgentDecisions: &AgentDecisionStore{client: client},
		ToolAccessLogs: &ToolAccessLogStore{client: client},
		Reports:        &ReportStore{client: client, blobs: blobs, inlineThreshold: 32 * 1024},
	}
}

// Client exposes the underlying ent client for callers that need to
// open a cross-entity transaction (e.g. selection + policy activation).
func (s *Store) Client() *ent.Client { return s.client }
