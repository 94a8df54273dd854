package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContextDefaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestFromContextClampsLimit(t *testing.T) {
	p := paramsFor(t, "limit=500")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContextParses(t *testing.T) {
	p := paramsFor(t, "limit=10&offset=30")
	if p.Limit != 10 || p.Offset != 30 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestHasMore(t *testing.T) {
	resp := NewResponse(nil, 50, 20, 20)
	if !resp.HasMore {
		t.Error("expected has_more true at offset 20 of 50")
	}
	resp = NewResponse(nil, 50, 20, 40)
	if resp.HasMore {
		t.Error("expected has_more false at offset 40 of 50")
	}
}

func TestSQL(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}
	if got := p.SQL(); got != "LIMIT 10 OFFSET 20" {
		t.Errorf("unexpected SQL clause %q", got)
	}
}
