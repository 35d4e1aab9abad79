package model

const (
	SortByID          = "id"
	SortByCreatedAt   = "created_at"
	SortByUpdatedAt   = "updated_at"
	SortBySource      = "source"
	SortByDestination = "destination"

	SortAsc  = "asc"
	SortDesc = "desc"
)

const (
	OpEquals     = "eq"
	OpNotEquals  = "neq"
	OpContains   = "contains"
	OpStartsWith = "startswith"
	OpEndsWith   = "endswith"
	OpIn         = "in"
	OpNotIn      = "notin"
)

const (
	FilterFieldStatusCode  = "status_code"
	FilterFieldSource      = "source"
	FilterFieldDestination = "destination"
)

// Filter is one predicate of a redirect listing. Values holds a single
// element except for in/notin.
type Filter struct {
	Field    string
	Operator string
	Values   []string
}

// ListOptions drives both pagination styles. Cursor is non-nil for cursor
// pagination (opaque value: last-seen id); otherwise Page/Limit apply.
type ListOptions struct {
	Page   int
	Limit  int
	Cursor *int64
	First  int

	SortBy    string
	SortOrder string

	Filters []Filter
}

func ValidSortField(field string) bool {
	switch field {
	case SortByID, SortByCreatedAt, SortByUpdatedAt, SortBySource, SortByDestination:
		return true
	}
	return false
}

var allowedOperators = map[string]map[string]struct{}{
	FilterFieldStatusCode: {
		OpEquals: {}, OpNotEquals: {}, OpIn: {}, OpNotIn: {},
	},
	FilterFieldSource: {
		OpEquals: {}, OpNotEquals: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {},
	},
	FilterFieldDestination: {
		OpEquals: {}, OpNotEquals: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {},
	},
}

func ValidFilter(f Filter) bool {
	ops, ok := allowedOperators[f.Field]
	if !ok {
		return false
	}
	if _, ok := ops[f.Operator]; !ok {
		return false
	}
	return len(f.Values) > 0
}
