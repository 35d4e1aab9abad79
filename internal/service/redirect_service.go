package service

import (
	"context"
	"fmt"
	"strings"

	"redirect-manager/internal/model"
)

type redirectStore interface {
	Create(ctx context.Context, redirect model.Redirect) (model.Redirect, error)
	BulkCreate(ctx context.Context, redirects []model.Redirect) ([]int64, error)
	FindByID(ctx context.Context, id int64) (model.Redirect, error)
	ListOffset(ctx context.Context, opts model.ListOptions) ([]model.Redirect, int, error)
	ListCursor(ctx context.Context, opts model.ListOptions) ([]model.Redirect, int, bool, error)
	Update(ctx context.Context, id int64, redirect model.Redirect) (model.Redirect, error)
	PartialUpdate(ctx context.Context, id int64, patch model.RedirectPatch) (model.Redirect, error)
	BatchPartialUpdate(ctx context.Context, updates []model.BatchUpdateRedirectItem) ([]model.BatchUpdateResult, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

// ruleResolver answers the public resolution path. A nil match with a nil
// error means no rule applies and the request falls through to the proxy.
type ruleResolver interface {
	Resolve(ctx context.Context, path string) (*model.RuleMatch, error)
	Purge()
}

// RedirectService manages redirect rules and fronts rule resolution.
// Every successful write purges the resolution cache so the public path
// never serves a rule older than one cache TTL.
type RedirectService struct {
	redirects redirectStore
	resolver  ruleResolver
}

func NewRedirectService(redirects redirectStore, resolver ruleResolver) *RedirectService {
	return &RedirectService{redirects: redirects, resolver: resolver}
}

func (s *RedirectService) Create(ctx context.Context, req model.CreateRedirectRequest) (model.Redirect, error) {
	redirect, err := redirectFromRequest(req)
	if err != nil {
		return model.Redirect{}, err
	}

	created, err := s.redirects.Create(ctx, redirect)
	if err != nil {
		return model.Redirect{}, err
	}

	s.resolver.Purge()
	return created, nil
}

// BulkCreate validates every rule up front, then inserts them skipping
// source collisions. It reports how many were created and how many were
// skipped as duplicates.
func (s *RedirectService) BulkCreate(ctx context.Context, reqs []model.CreateRedirectRequest) ([]int64, int, error) {
	if len(reqs) == 0 {
		return nil, 0, fmt.Errorf("%w: redirects must not be empty", model.ErrInvalidInput)
	}

	redirects := make([]model.Redirect, 0, len(reqs))
	for i, req := range reqs {
		redirect, err := redirectFromRequest(req)
		if err != nil {
			return nil, 0, fmt.Errorf("redirect %d: %w", i, err)
		}
		redirects = append(redirects, redirect)
	}

	ids, err := s.redirects.BulkCreate(ctx, redirects)
	if err != nil {
		return nil, 0, err
	}

	s.resolver.Purge()
	return ids, len(redirects) - len(ids), nil
}

func (s *RedirectService) Get(ctx context.Context, id int64) (model.Redirect, error) {
	return s.redirects.FindByID(ctx, id)
}

func (s *RedirectService) ListOffset(ctx context.Context, opts model.ListOptions) ([]model.Redirect, int, error) {
	return s.redirects.ListOffset(ctx, opts)
}

func (s *RedirectService) ListCursor(ctx context.Context, opts model.ListOptions) ([]model.Redirect, int, bool, error) {
	return s.redirects.ListCursor(ctx, opts)
}

func (s *RedirectService) Update(ctx context.Context, id int64, req model.CreateRedirectRequest) (model.Redirect, error) {
	redirect, err := redirectFromRequest(req)
	if err != nil {
		return model.Redirect{}, err
	}

	updated, err := s.redirects.Update(ctx, id, redirect)
	if err != nil {
		return model.Redirect{}, err
	}

	s.resolver.Purge()
	return updated, nil
}

func (s *RedirectService) PartialUpdate(ctx context.Context, id int64, patch model.RedirectPatch) (model.Redirect, error) {
	if err := validatePatch(&patch); err != nil {
		return model.Redirect{}, err
	}

	updated, err := s.redirects.PartialUpdate(ctx, id, patch)
	if err != nil {
		return model.Redirect{}, err
	}

	s.resolver.Purge()
	return updated, nil
}

// BatchUpdate applies patches item by item; invalid items are reported in
// the result instead of failing the batch.
func (s *RedirectService) BatchUpdate(ctx context.Context, updates []model.BatchUpdateRedirectItem) ([]model.BatchUpdateResult, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: updates must not be empty", model.ErrInvalidInput)
	}

	valid := make([]model.BatchUpdateRedirectItem, 0, len(updates))
	rejected := make([]model.BatchUpdateResult, 0)
	for _, update := range updates {
		if err := validatePatch(&update.RedirectPatch); err != nil {
			rejected = append(rejected, model.BatchUpdateResult{ID: update.ID, Updated: false, Error: err.Error()})
			continue
		}
		valid = append(valid, update)
	}

	results, err := s.redirects.BatchPartialUpdate(ctx, valid)
	if err != nil {
		return nil, err
	}
	results = append(results, rejected...)

	s.resolver.Purge()
	return results, nil
}

func (s *RedirectService) Delete(ctx context.Context, id int64) error {
	if _, err := s.redirects.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.redirects.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.resolver.Purge()
	return nil
}

func (s *RedirectService) BatchDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must not be empty", model.ErrInvalidInput)
	}

	deleted, err := s.redirects.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.resolver.Purge()
	return deleted, nil
}

// Resolve matches a lowercased request path against the rule set and
// post-processes the destination: a rule carrying a domain yields an
// absolute URL against that domain.
func (s *RedirectService) Resolve(ctx context.Context, path string) (*model.RuleMatch, error) {
	match, err := s.resolver.Resolve(ctx, path)
	if err != nil || match == nil {
		return nil, err
	}

	out := *match
	if out.Domain != nil && strings.HasPrefix(out.Destination, "/") {
		out.Destination = "https://" + *out.Domain + out.Destination
	}
	return &out, nil
}

func redirectFromRequest(req model.CreateRedirectRequest) (model.Redirect, error) {
	source, err := normalizeSource(req.Source)
	if err != nil {
		return model.Redirect{}, err
	}

	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return model.Redirect{}, fmt.Errorf("%w: destination is required", model.ErrInvalidInput)
	}

	statusCode := req.StatusCode
	if statusCode == 0 {
		statusCode = 301
	}
	if !model.ValidRedirectStatusCode(statusCode) {
		return model.Redirect{}, fmt.Errorf("%w: status code %d is not a redirect status", model.ErrInvalidInput, statusCode)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	return model.Redirect{
		Source:          source,
		Destination:     destination,
		Domain:          req.Domain,
		StatusCode:      statusCode,
		Enabled:         enabled,
		IsCaseSensitive: req.IsCaseSensitive,
	}, nil
}

func validatePatch(patch *model.RedirectPatch) error {
	if patch.Source != nil {
		source, err := normalizeSource(*patch.Source)
		if err != nil {
			return err
		}
		patch.Source = &source
	}
	if patch.Destination != nil && strings.TrimSpace(*patch.Destination) == "" {
		return fmt.Errorf("%w: destination must not be empty", model.ErrInvalidInput)
	}
	if patch.StatusCode != nil && !model.ValidRedirectStatusCode(*patch.StatusCode) {
		return fmt.Errorf("%w: status code %d is not a redirect status", model.ErrInvalidInput, *patch.StatusCode)
	}
	return nil
}

// normalizeSource trims the source and guarantees a leading slash so
// "/blog" and "blog" name the same rule.
func normalizeSource(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("%w: source is required", model.ErrInvalidInput)
	}
	if !strings.HasPrefix(source, "/") {
		source = "/" + source
	}
	return source, nil
}
