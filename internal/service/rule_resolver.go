package service

import (
	"context"
	"strings"

	"redirect-manager/internal/model"
)

// ruleStore supplies resolution candidates. The exact lookup may return
// a disabled row; filtering and selection happen here so the matching
// rules live in one place.
type ruleStore interface {
	FindBySourceExact(ctx context.Context, path string) (model.Redirect, bool, error)
	FindWildcardCandidates(ctx context.Context, prefixes []string) ([]model.Redirect, error)
}

// DirectResolver matches a lowercased request path against the rule set
// on every call. An enabled exact rule wins outright; otherwise the
// enabled wildcard rule with the longest source wins. Disabled rules
// never match, exact or wildcard.
type DirectResolver struct {
	source ruleStore
}

func NewDirectResolver(source ruleStore) *DirectResolver {
	return &DirectResolver{source: source}
}

func (r *DirectResolver) Resolve(ctx context.Context, path string) (*model.RuleMatch, error) {
	rule, found, err := r.source.FindBySourceExact(ctx, path)
	if err != nil {
		return nil, err
	}
	if found && rule.Enabled {
		return matchFromRule(rule), nil
	}

	candidates, err := r.source.FindWildcardCandidates(ctx, pathPrefixes(path))
	if err != nil {
		return nil, err
	}
	return bestWildcard(candidates), nil
}

// Purge is a no-op; without a cache there is nothing to invalidate.
func (r *DirectResolver) Purge() {}

// bestWildcard picks the enabled wildcard rule with the longest source.
// Candidates arrive unordered as far as this function is concerned.
func bestWildcard(candidates []model.Redirect) *model.RuleMatch {
	var best *model.Redirect
	for i := range candidates {
		c := &candidates[i]
		if !c.Enabled || !strings.HasSuffix(c.Source, model.WildcardMarker) {
			continue
		}
		if best == nil || len(c.Source) > len(best.Source) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return matchFromRule(*best)
}

func matchFromRule(rule model.Redirect) *model.RuleMatch {
	return &model.RuleMatch{
		Source:      rule.Source,
		Destination: rule.Destination,
		Domain:      rule.Domain,
		StatusCode:  rule.StatusCode,
	}
}

// pathPrefixes lists every segment prefix of a path, root included:
// "/a/b/c" yields ["/", "/a/", "/a/b/", "/a/b/c/"].
func pathPrefixes(path string) []string {
	parts := make([]string, 0)
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	prefixes := []string{"/"}
	for i := range parts {
		prefixes = append(prefixes, "/"+strings.Join(parts[:i+1], "/")+"/")
	}
	return prefixes
}
