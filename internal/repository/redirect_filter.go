package repository

import (
	"fmt"
	"strconv"
	"strings"

	"redirect-manager/internal/model"
)

// escapeLike makes a user-supplied fragment safe inside a LIKE pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

var filterColumns = map[string]string{
	model.FilterFieldStatusCode:  "status_code",
	model.FilterFieldSource:      "source",
	model.FilterFieldDestination: "destination",
}

// buildFilterClauses turns listing filters into SQL predicates with
// positional arguments starting at argOffset+1.
func buildFilterClauses(filters []model.Filter, argOffset int) ([]string, []any, error) {
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))

	next := func() int { return argOffset + len(args) + 1 }

	for _, f := range filters {
		if !model.ValidFilter(f) {
			return nil, nil, fmt.Errorf("%w: unsupported filter %s %s", model.ErrInvalidInput, f.Field, f.Operator)
		}
		column := filterColumns[f.Field]

		if f.Field == model.FilterFieldStatusCode {
			codes := make([]int, 0, len(f.Values))
			for _, raw := range f.Values {
				code, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil || !model.ValidRedirectStatusCode(code) {
					return nil, nil, fmt.Errorf("%w: invalid status code %q", model.ErrInvalidInput, raw)
				}
				codes = append(codes, code)
			}

			switch f.Operator {
			case model.OpEquals:
				clauses = append(clauses, fmt.Sprintf("%s = $%d", column, next()))
				args = append(args, codes[0])
			case model.OpNotEquals:
				clauses = append(clauses, fmt.Sprintf("%s <> $%d", column, next()))
				args = append(args, codes[0])
			case model.OpIn:
				clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", column, next()))
				args = append(args, codes)
			case model.OpNotIn:
				clauses = append(clauses, fmt.Sprintf("%s <> ALL($%d)", column, next()))
				args = append(args, codes)
			}
			continue
		}

		value := strings.TrimSpace(f.Values[0])
		switch f.Operator {
		case model.OpEquals:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, next()))
			args = append(args, value)
		case model.OpNotEquals:
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", column, next()))
			args = append(args, value)
		case model.OpContains:
			clauses = append(clauses, fmt.Sprintf("%s LIKE $%d", column, next()))
			args = append(args, "%"+escapeLike(value)+"%")
		case model.OpStartsWith:
			clauses = append(clauses, fmt.Sprintf("%s LIKE $%d", column, next()))
			args = append(args, escapeLike(value)+"%")
		case model.OpEndsWith:
			clauses = append(clauses, fmt.Sprintf("%s LIKE $%d", column, next()))
			args = append(args, "%"+escapeLike(value))
		}
	}

	return clauses, args, nil
}

var sortColumns = map[string]string{
	model.SortByID:          "id",
	model.SortByCreatedAt:   "created_at",
	model.SortByUpdatedAt:   "updated_at",
	model.SortBySource:      "source",
	model.SortByDestination: "destination",
}

func buildOrderBy(sortBy string, sortOrder string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if sortOrder == model.SortDesc {
		direction = "DESC"
	}
	// Secondary id ordering keeps pagination stable when the sort column
	// has duplicates.
	return fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction)
}
