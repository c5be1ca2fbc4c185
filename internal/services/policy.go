package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/xai-decision-backend/internal/data/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/data/repos"
	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/modules/decisions/ingest"
	"github.com/yungbote/xai-decision-backend/internal/platform/dbctx"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

type PolicyService interface {
	Add(ctx context.Context, domain, text string) (*decisions.PolicyEntry, error)
	// List returns every policy when domain is empty, otherwise the domain's
	// entries preceded by the global ones.
	List(ctx context.Context, domain string) ([]*decisions.PolicyEntry, error)
	Delete(ctx context.Context, domain string, id uuid.UUID) error
	// Upload creates one entry per record of the file, all or nothing.
	Upload(ctx context.Context, domain string, format ingest.Format, content []byte) ([]*decisions.PolicyEntry, error)
}

type policyService struct {
	log      *logger.Logger
	policies repos.PolicyRepo
	tx       aggregates.TxRunner
	now      func() time.Time
}

func NewPolicyService(log *logger.Logger, policies repos.PolicyRepo, tx aggregates.TxRunner) PolicyService {
	if tx == nil {
		tx = aggregates.NoopTxRunner{}
	}
	return &policyService{
		log:      log.With("service", "PolicyService"),
		policies: policies,
		tx:       tx,
		now:      time.Now,
	}
}

func parsePolicyDomain(op, raw string) (decisions.Domain, error) {
	d, ok := decisions.ParsePolicyDomain(raw)
	if !ok {
		return "", domainagg.NewError(domainagg.CodeValidation, op, "domain must be one of loan, job, insurance, credit, global", decisions.ErrValidation)
	}
	return d, nil
}

func (s *policyService) Add(ctx context.Context, domain, text string) (*decisions.PolicyEntry, error) {
	d, err := parsePolicyDomain("services.AddPolicy", domain)
	if err != nil {
		return nil, err
	}
	entry, err := decisions.NewPolicyEntry(d, text, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.policies.Create(dbctx.From(ctx), []*decisions.PolicyEntry{entry}); err != nil {
		return nil, err
	}
	s.log.Info("policy added", "domain", d, "policy_id", entry.ID)
	return entry, nil
}

func (s *policyService) List(ctx context.Context, domain string) ([]*decisions.PolicyEntry, error) {
	dbc := dbctx.From(ctx)
	if strings.TrimSpace(domain) == "" {
		return s.policies.List(dbc)
	}
	d, err := parsePolicyDomain("services.ListPolicies", domain)
	if err != nil {
		return nil, err
	}
	if d == decisions.DomainGlobal {
		return s.policies.List(dbc, d)
	}
	entries, err := s.policies.List(dbc, decisions.DomainGlobal, d)
	if err != nil {
		return nil, err
	}
	out := make([]*decisions.PolicyEntry, 0, len(entries))
	for _, p := range entries {
		if p.Domain == decisions.DomainGlobal {
			out = append(out, p)
		}
	}
	for _, p := range entries {
		if p.Domain != decisions.DomainGlobal {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *policyService) Delete(ctx context.Context, domain string, id uuid.UUID) error {
	const op = "services.DeletePolicy"
	d, err := parsePolicyDomain(op, domain)
	if err != nil {
		return err
	}
	ok, err := s.policies.Delete(dbctx.From(ctx), d, id)
	if err != nil {
		return err
	}
	if !ok {
		return domainagg.NotFound(op, "policy %s not found in domain %s", id, d)
	}
	s.log.Info("policy deleted", "domain", d, "policy_id", id)
	return nil
}

func (s *policyService) Upload(ctx context.Context, domain string, format ingest.Format, content []byte) ([]*decisions.PolicyEntry, error) {
	const op = "services.UploadPolicies"
	d, err := parsePolicyDomain(op, domain)
	if err != nil {
		return nil, err
	}
	texts, err := ingest.Policies(format, content)
	if err != nil {
		return nil, uploadError(op, err)
	}
	now := s.now()
	entries := make([]*decisions.PolicyEntry, 0, len(texts))
	var problems []string
	for i, text := range texts {
		entry, err := decisions.NewPolicyEntry(d, text, now)
		if err != nil {
			problems = append(problems, fmt.Sprintf("record %d: %s", i+1, domainagg.MessageOf(err)))
			continue
		}
		entries = append(entries, entry)
	}
	if len(problems) > 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, strings.Join(problems, "; "), decisions.ErrValidation)
	}
	if err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		return s.policies.Create(dbc, entries)
	}); err != nil {
		return nil, err
	}
	s.log.Info("policies uploaded", "domain", d, "format", format, "count", len(entries))
	return entries, nil
}

// uploadError maps decoder failures onto validation errors. Unsupported
// formats are rejected earlier, at the HTTP boundary.
func uploadError(op string, err error) error {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrMalformed),
		errors.Is(err, ingest.ErrEmpty),
		errors.Is(err, ingest.ErrTooManyRows):
		return domainagg.NewError(domainagg.CodeValidation, op, err.Error(), decisions.ErrValidation)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
