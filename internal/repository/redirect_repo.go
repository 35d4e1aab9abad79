package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"redirect-manager/internal/model"
)

type RedirectRepository struct {
	pool *pgxpool.Pool
}

func NewRedirectRepository(pool *pgxpool.Pool) *RedirectRepository {
	return &RedirectRepository{pool: pool}
}

const redirectColumns = `id, source, destination, domain, status_code, enabled,
	is_case_sensitive, source_prefix, source_length, created_at, updated_at`

func scanRedirect(row pgx.Row) (model.Redirect, error) {
	var r model.Redirect
	err := row.Scan(&r.ID, &r.Source, &r.Destination, &r.Domain, &r.StatusCode,
		&r.Enabled, &r.IsCaseSensitive, &r.SourcePrefix, &r.SourceLength,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *RedirectRepository) Create(ctx context.Context, redirect model.Redirect) (model.Redirect, error) {
	prefix, length := model.SourceIndex(redirect.Source)

	row := r.pool.QueryRow(ctx,
		`INSERT INTO redirects
		     (source, destination, domain, status_code, enabled, is_case_sensitive,
		      source_prefix, source_length, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING `+redirectColumns,
		redirect.Source, redirect.Destination, redirect.Domain, redirect.StatusCode,
		redirect.Enabled, redirect.IsCaseSensitive, prefix, length, time.Now().UTC())

	created, err := scanRedirect(row)
	if isUniqueViolation(err) {
		return model.Redirect{}, model.ErrUniqueConstraint
	}
	if err != nil {
		return model.Redirect{}, fmt.Errorf("create redirect: %w", err)
	}
	return created, nil
}

// BulkCreate inserts many rules, silently skipping ones that collide with
// an existing enabled source. Returns the ids actually created.
func (r *RedirectRepository) BulkCreate(ctx context.Context, redirects []model.Redirect) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin bulk create: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ids := make([]int64, 0, len(redirects))
	for _, redirect := range redirects {
		prefix, length := model.SourceIndex(redirect.Source)

		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO redirects
			     (source, destination, domain, status_code, enabled, is_case_sensitive,
			      source_prefix, source_length, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			 ON CONFLICT (lower(source)) WHERE enabled DO NOTHING
			 RETURNING id`,
			redirect.Source, redirect.Destination, redirect.Domain, redirect.StatusCode,
			redirect.Enabled, redirect.IsCaseSensitive, prefix, length, now).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // duplicate source, skipped
		}
		if err != nil {
			return nil, fmt.Errorf("bulk create redirect: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bulk create: %w", err)
	}
	return ids, nil
}

func (r *RedirectRepository) FindByID(ctx context.Context, id int64) (model.Redirect, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+redirectColumns+` FROM redirects WHERE id = $1`, id)

	redirect, err := scanRedirect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Redirect{}, model.ErrRedirectNotFound
	}
	if err != nil {
		return model.Redirect{}, fmt.Errorf("find redirect by id: %w", err)
	}
	return redirect, nil
}

func (r *RedirectRepository) ListOffset(ctx context.Context, opts model.ListOptions) ([]model.Redirect, int, error) {
	clauses, args, err := buildFilterClauses(opts.Filters, 0)
	if err != nil {
		return nil, 0, err
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM redirects %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count redirects: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM redirects %s %s LIMIT $%d OFFSET $%d`,
		redirectColumns, where, buildOrderBy(opts.SortBy, opts.SortOrder),
		len(args)+1, len(args)+2)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list redirects: %w", err)
	}
	defer rows.Close()

	redirects, err := collectRedirects(rows)
	if err != nil {
		return nil, 0, err
	}
	return redirects, total, nil
}

// ListCursor pages by last-seen id. It fetches one extra row to learn
// whether a next page exists.
func (r *RedirectRepository) ListCursor(ctx context.Context, opts model.ListOptions) ([]model.Redirect, int, bool, error) {
	clauses, args, err := buildFilterClauses(opts.Filters, 0)
	if err != nil {
		return nil, 0, false, err
	}

	filterWhere := ""
	if len(clauses) > 0 {
		filterWhere = "WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM redirects %s`, filterWhere), args...).Scan(&total); err != nil {
		return nil, 0, false, fmt.Errorf("count redirects: %w", err)
	}

	if opts.Cursor != nil {
		op := ">"
		if opts.SortOrder == model.SortDesc {
			op = "<"
		}
		clauses = append(clauses, fmt.Sprintf("id %s $%d", op, len(args)+1))
		args = append(args, *opts.Cursor)
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM redirects %s %s LIMIT $%d`,
		redirectColumns, where, buildOrderBy(opts.SortBy, opts.SortOrder), len(args)+1)
	args = append(args, opts.First+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, false, fmt.Errorf("list redirects by cursor: %w", err)
	}
	defer rows.Close()

	redirects, err := collectRedirects(rows)
	if err != nil {
		return nil, 0, false, err
	}

	hasNext := len(redirects) > opts.First
	if hasNext {
		redirects = redirects[:opts.First]
	}
	return redirects, total, hasNext, nil
}

func collectRedirects(rows pgx.Rows) ([]model.Redirect, error) {
	redirects := make([]model.Redirect, 0)
	for rows.Next() {
		redirect, err := scanRedirect(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redirect: %w", err)
		}
		redirects = append(redirects, redirect)
	}
	return redirects, rows.Err()
}

func (r *RedirectRepository) Update(ctx context.Context, id int64, redirect model.Redirect) (model.Redirect, error) {
	prefix, length := model.SourceIndex(redirect.Source)

	row := r.pool.QueryRow(ctx,
		`UPDATE redirects SET
		     source = $2, destination = $3, domain = $4, status_code = $5,
		     enabled = $6, is_case_sensitive = $7, source_prefix = $8,
		     source_length = $9, updated_at = $10
		 WHERE id = $1
		 RETURNING `+redirectColumns,
		id, redirect.Source, redirect.Destination, redirect.Domain, redirect.StatusCode,
		redirect.Enabled, redirect.IsCaseSensitive, prefix, length, time.Now().UTC())

	updated, err := scanRedirect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Redirect{}, model.ErrRedirectNotFound
	}
	if isUniqueViolation(err) {
		return model.Redirect{}, model.ErrUniqueConstraint
	}
	if err != nil {
		return model.Redirect{}, fmt.Errorf("update redirect: %w", err)
	}
	return updated, nil
}

func (r *RedirectRepository) PartialUpdate(ctx context.Context, id int64, patch model.RedirectPatch) (model.Redirect, error) {
	redirect, err := partialUpdate(ctx, r.pool, id, patch)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Redirect{}, model.ErrRedirectNotFound
	}
	if isUniqueViolation(err) {
		return model.Redirect{}, model.ErrUniqueConstraint
	}
	if err != nil {
		return model.Redirect{}, fmt.Errorf("partial update redirect: %w", err)
	}
	return redirect, nil
}

type execQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func partialUpdate(ctx context.Context, q execQuerier, id int64, patch model.RedirectPatch) (model.Redirect, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	next := func() int { return len(args) + 1 }

	if patch.Source != nil {
		prefix, length := model.SourceIndex(*patch.Source)
		sets = append(sets,
			fmt.Sprintf("source = $%d", next()),
			fmt.Sprintf("source_prefix = $%d", next()+1),
			fmt.Sprintf("source_length = $%d", next()+2))
		args = append(args, *patch.Source, prefix, length)
	}
	if patch.Destination != nil {
		sets = append(sets, fmt.Sprintf("destination = $%d", next()))
		args = append(args, *patch.Destination)
	}
	if patch.Domain != nil {
		sets = append(sets, fmt.Sprintf("domain = $%d", next()))
		args = append(args, *patch.Domain)
	}
	if patch.StatusCode != nil {
		sets = append(sets, fmt.Sprintf("status_code = $%d", next()))
		args = append(args, *patch.StatusCode)
	}
	if patch.Enabled != nil {
		sets = append(sets, fmt.Sprintf("enabled = $%d", next()))
		args = append(args, *patch.Enabled)
	}
	if patch.IsCaseSensitive != nil {
		sets = append(sets, fmt.Sprintf("is_case_sensitive = $%d", next()))
		args = append(args, *patch.IsCaseSensitive)
	}

	row := q.QueryRow(ctx,
		fmt.Sprintf(`UPDATE redirects SET %s WHERE id = $1 RETURNING %s`,
			strings.Join(sets, ", "), redirectColumns), args...)
	return scanRedirect(row)
}

// BatchPartialUpdate applies every patch inside one transaction, isolating
// each item with a savepoint so a failing item is reported without
// aborting the rest.
func (r *RedirectRepository) BatchPartialUpdate(ctx context.Context, updates []model.BatchUpdateRedirectItem) ([]model.BatchUpdateResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch update: %w", err)
	}
	defer tx.Rollback(ctx)

	results := make([]model.BatchUpdateResult, 0, len(updates))
	for _, update := range updates {
		sp, err := tx.Begin(ctx) // savepoint
		if err != nil {
			return nil, fmt.Errorf("savepoint: %w", err)
		}

		redirect, err := partialUpdate(ctx, sp, update.ID, update.RedirectPatch)
		if err != nil {
			_ = sp.Rollback(ctx)
			results = append(results, model.BatchUpdateResult{
				ID:      update.ID,
				Updated: false,
				Error:   batchErrorMessage(err),
			})
			continue
		}

		if err := sp.Commit(ctx); err != nil {
			return nil, fmt.Errorf("release savepoint: %w", err)
		}
		results = append(results, model.BatchUpdateResult{
			ID:       update.ID,
			Updated:  true,
			Redirect: &redirect,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit batch update: %w", err)
	}
	return results, nil
}

func batchErrorMessage(err error) string {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrRedirectNotFound.Error()
	}
	if isUniqueViolation(err) {
		return model.ErrUniqueConstraint.Error()
	}
	return err.Error()
}

// DeleteByID is idempotent at this level; the service decides whether a
// missing row is an error.
func (r *RedirectRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM redirects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete redirect: %w", err)
	}
	return nil
}

func (r *RedirectRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM redirects WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete redirects: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindBySourceExact returns the enabled rule whose source equals the
// lowercased path, if one exists.
func (r *RedirectRepository) FindBySourceExact(ctx context.Context, path string) (model.Redirect, bool, error) {
	var rule model.Redirect
	err := r.pool.QueryRow(ctx,
		`SELECT source, destination, domain, status_code, enabled
		 FROM redirects WHERE lower(source) = $1 AND enabled`, path).
		Scan(&rule.Source, &rule.Destination, &rule.Domain, &rule.StatusCode, &rule.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Redirect{}, false, nil
	}
	if err != nil {
		return model.Redirect{}, false, fmt.Errorf("resolve exact source: %w", err)
	}
	return rule, true, nil
}

// FindWildcardCandidates returns every enabled wildcard rule whose
// literal prefix matches one of the given path prefixes. Selection of
// the winner happens in the resolver.
func (r *RedirectRepository) FindWildcardCandidates(ctx context.Context, prefixes []string) ([]model.Redirect, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source, destination, domain, status_code, enabled
		 FROM redirects
		 WHERE lower(source_prefix) = ANY($1)
		   AND source LIKE '%*'
		   AND enabled
		 ORDER BY source_length DESC`, prefixes)
	if err != nil {
		return nil, fmt.Errorf("resolve wildcard source: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.Redirect, 0)
	for rows.Next() {
		var rule model.Redirect
		if err := rows.Scan(&rule.Source, &rule.Destination, &rule.Domain, &rule.StatusCode, &rule.Enabled); err != nil {
			return nil, fmt.Errorf("scan wildcard candidate: %w", err)
		}
		candidates = append(candidates, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve wildcard source: %w", err)
	}
	return candidates, nil
}
