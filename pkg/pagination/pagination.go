package pagination

import "strings"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Result annotates a page of rows with the total count for table UIs.
type Result struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage floors the page number at one.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Offset computes the row offset for the normalized page/limit pair.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// OrderClause builds an ORDER BY fragment from the whitelist of sortable
// columns, falling back to the first entry when the requested column is
// unknown. The whitelist guards against SQL injection through sort params.
func (p Params) OrderClause(sortable ...string) string {
	if len(sortable) == 0 {
		return ""
	}
	column := sortable[0]
	requested := strings.TrimSpace(p.SortBy)
	for _, candidate := range sortable {
		if candidate == requested {
			column = candidate
			break
		}
	}

	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(p.SortOrder), "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// NewResult assembles the page metadata returned alongside rows.
func NewResult(params Params, total int64) Result {
	limit := NormalizeLimit(params.Limit)
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Result{
		Page:       NormalizePage(params.Page),
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}
