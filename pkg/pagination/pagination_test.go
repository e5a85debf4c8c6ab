package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, Limit: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("expected offset 40, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
}

func TestOrderClauseWhitelist(t *testing.T) {
	p := Params{SortBy: "final_price", SortOrder: "asc"}
	if got := p.OrderClause("created_at", "final_price"); got != "final_price ASC" {
		t.Fatalf("unexpected order clause %q", got)
	}

	evil := Params{SortBy: "created_at; DROP TABLE payments", SortOrder: "desc"}
	if got := evil.OrderClause("created_at", "final_price"); got != "created_at DESC" {
		t.Fatalf("unknown sort column must fall back, got %q", got)
	}
}

func TestNewResultRoundsPagesUp(t *testing.T) {
	res := NewResult(Params{Page: 2, Limit: 10}, 35)
	if res.TotalPages != 4 {
		t.Fatalf("expected 4 pages, got %d", res.TotalPages)
	}
	if res.Page != 2 || res.Limit != 10 || res.Total != 35 {
		t.Fatalf("unexpected result %+v", res)
	}
}
