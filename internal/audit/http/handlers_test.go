package audithttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platecost/platecost/internal/audit"
)

type stubTimelineService struct {
	result      audit.Result
	entries     []audit.Entry
	err         error
	gotFilters  audit.TimelineFilters
	exportCalls int
}

func (s *stubTimelineService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.gotFilters = filters
	return s.result, s.err
}

func (s *stubTimelineService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.Entry, error) {
	s.gotFilters = filters
	s.exportCalls++
	return s.entries, s.err
}

func newAuditHandler(svc *stubTimelineService) *Handler {
	h := NewHandler(nil, svc, audit.CSVExporter{})
	h.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestTimelineDefaultsToSevenDayWindow(t *testing.T) {
	svc := &stubTimelineService{result: audit.Result{Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	h := newAuditHandler(svc)

	rec := httptest.NewRecorder()
	h.handleTimeline(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), svc.gotFilters.From)
	require.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC).Add(24*time.Hour-time.Nanosecond), svc.gotFilters.To)
}

func TestTimelineParsesFilters(t *testing.T) {
	svc := &stubTimelineService{}
	h := newAuditHandler(svc)

	target := "/audit?from=2026-08-01&to=2026-08-15&actor_id=7&property_id=10&action=GRANT_PROPERTY_ACCESS&page=2&page_size=25"
	rec := httptest.NewRecorder()
	h.handleTimeline(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 7, svc.gotFilters.ActorID)
	require.EqualValues(t, 10, svc.gotFilters.PropertyID)
	require.Equal(t, "GRANT_PROPERTY_ACCESS", svc.gotFilters.Action)
	require.Equal(t, 2, svc.gotFilters.Page)
	require.Equal(t, 25, svc.gotFilters.PageSize)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	h := newAuditHandler(&stubTimelineService{})
	targets := []string{
		"/audit?from=yesterday",
		"/audit?from=2026-08-20&to=2026-08-01",
		"/audit?from=2026-01-01&to=2026-08-30",
		"/audit?actor_id=-1",
		"/audit?page=0",
		"/audit?page_size=abc",
	}
	for _, target := range targets {
		rec := httptest.NewRecorder()
		h.handleTimeline(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestTimelineRendersEntries(t *testing.T) {
	propertyID := int64(10)
	svc := &stubTimelineService{result: audit.Result{
		Rows: []audit.Entry{{
			ActorID:    1,
			PropertyID: &propertyID,
			Action:     audit.ActionGrantPropertyAccess,
			Resource:   "property_access",
			At:         time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
		}},
		Paging: audit.PagingInfo{Page: 1, PageSize: 20, HasNext: true},
	}}
	h := newAuditHandler(svc)

	rec := httptest.NewRecorder()
	h.handleTimeline(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []map[string]any `json:"entries"`
		Paging  map[string]any   `json:"paging"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	require.Equal(t, audit.ActionGrantPropertyAccess, body.Entries[0]["action"])
	require.Equal(t, "2026-08-29T09:00:00Z", body.Entries[0]["at"])
	require.Equal(t, true, body.Paging["has_next"])
}

func TestExportServesCSVDownload(t *testing.T) {
	svc := &stubTimelineService{entries: []audit.Entry{{
		ActorID:  1,
		Action:   audit.ActionLoginSuccess,
		Resource: "session",
		At:       time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC),
	}}}
	h := newAuditHandler(svc)

	rec := httptest.NewRecorder()
	h.handleExport(rec, httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.exportCalls)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "audit-timeline.csv")
	require.Contains(t, rec.Body.String(), "LOGIN_SUCCESS")
}

func TestTimelineServiceErrorIsInternal(t *testing.T) {
	h := newAuditHandler(&stubTimelineService{err: errors.New("boom")})
	rec := httptest.NewRecorder()
	h.handleTimeline(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
