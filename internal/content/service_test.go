// AngelaMos | 2026
// service_test.go

package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/examprep/internal/access"
	"github.com/carterperez-dev/examprep/internal/batch"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/enrollment"
	"github.com/carterperez-dev/examprep/internal/middleware"
)

type memRepo struct {
	items      []Item
	fullCalls  int
	outlineHit int
}

func (m *memRepo) Outline(_ context.Context, batchID int64) ([]Item, error) {
	m.outlineHit++
	var out []Item
	for _, it := range m.items {
		if it.BatchID == batchID {
			it.MediaURL = ""
			it.Body = ""
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memRepo) ListFull(_ context.Context, batchID int64) ([]Item, error) {
	m.fullCalls++
	var out []Item
	for _, it := range m.items {
		if it.BatchID == batchID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, it *Item) error {
	it.ID = int64(len(m.items) + 1)
	m.items = append(m.items, *it)
	return nil
}

func (m *memRepo) Delete(context.Context, int64) error {
	return nil
}

type stubBatches map[int64]*batch.Batch

func (s stubBatches) Get(_ context.Context, id int64) (*batch.Batch, error) {
	b, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("get batch: %w", core.ErrNotFound)
	}
	return b, nil
}

type stubLedger struct {
	rows map[string]enrollment.Status
	err  error
}

func (s *stubLedger) GetStatus(_ context.Context, studentID string, batchID int64) (enrollment.Status, error) {
	if s.err != nil {
		return enrollment.NotEnrolled(batchID), s.err
	}
	if st, ok := s.rows[studentID]; ok && st.BatchID == batchID {
		return st, nil
	}
	return enrollment.NotEnrolled(batchID), nil
}

func fixture(ledger *stubLedger) (*Service, *memRepo) {
	repo := &memRepo{items: []Item{
		{ID: 1, BatchID: 10, Subject: "Physics", Title: "Kinematics", Kind: KindVideo, MediaURL: "https://cdn.example.com/k.mp4"},
		{ID: 2, BatchID: 10, Subject: "Physics", Title: "Notes", Kind: KindNote, Body: "v = u + at"},
	}}
	batches := stubBatches{
		10: {ID: 10, Status: batch.StatusActive},
		11: {ID: 11, Status: batch.StatusArchived},
	}
	return NewService(repo, batches, access.NewGate(ledger, nil), nil), repo
}

func paid(batchID int64) enrollment.Status {
	return enrollment.Status{
		BatchID:       batchID,
		IsEnrolled:    true,
		Status:        enrollment.StatusActive,
		PaymentStatus: enrollment.PaymentPaid,
	}
}

func TestList_GatesContent(t *testing.T) {
	ctx := context.Background()
	ledger := &stubLedger{rows: map[string]enrollment.Status{"s1": paid(10)}}

	tests := []struct {
		name       string
		viewer     access.Viewer
		wantLocked bool
	}{
		{"guest", access.Viewer{}, true},
		{"unenrolled student", access.Viewer{Role: access.RoleStudent, StudentID: "s2"}, true},
		{"enrolled student", access.Viewer{Role: access.RoleStudent, StudentID: "s1"}, false},
		{"admin", access.Viewer{Role: access.RoleAdmin, StudentID: "a1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := fixture(ledger)

			resp, err := svc.List(ctx, tt.viewer, 10)
			require.NoError(t, err)
			require.Len(t, resp.Items, 2)

			assert.Equal(t, tt.wantLocked, resp.Locked)
			if tt.wantLocked {
				assert.Empty(t, resp.Items[0].MediaURL)
				assert.Empty(t, resp.Items[1].Body)
			} else {
				assert.NotEmpty(t, resp.Items[0].MediaURL)
				assert.NotEmpty(t, resp.Items[1].Body)
			}
		})
	}
}

func TestList_LedgerErrorServesOutline(t *testing.T) {
	svc, repo := fixture(&stubLedger{err: errors.New("db down")})

	resp, err := svc.List(context.Background(), access.Viewer{Role: access.RoleStudent, StudentID: "s1"}, 10)
	require.NoError(t, err)

	assert.True(t, resp.Locked)
	assert.Equal(t, access.ReasonLedgerUnavailable, resp.Reason)
	assert.Zero(t, repo.fullCalls)
	assert.Equal(t, 1, repo.outlineHit)
}

func TestList_UnknownOrArchivedBatch(t *testing.T) {
	svc, _ := fixture(&stubLedger{})
	ctx := context.Background()

	_, err := svc.List(ctx, access.Viewer{}, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.List(ctx, access.Viewer{Role: access.RoleStudent, StudentID: "s1"}, 11)
	assert.ErrorIs(t, err, core.ErrNotFound)

	resp, err := svc.List(ctx, access.Viewer{Role: access.RoleAdmin, StudentID: "a1"}, 11)
	require.NoError(t, err)
	assert.False(t, resp.Locked)
}

type stubVerifier struct{}

func (stubVerifier) VerifyAccessToken(_ context.Context, token string) (*middleware.AccessTokenClaims, error) {
	if token != "student-token" {
		return nil, core.ErrTokenInvalid
	}
	return &middleware.AccessTokenClaims{UserID: "s1", Role: middleware.RoleStudent}, nil
}

func TestHandler_List(t *testing.T) {
	svc, _ := fixture(&stubLedger{rows: map[string]enrollment.Status{"s1": paid(10)}})

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, middleware.OptionalAuth(stubVerifier{}))

	call := func(token string) map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/batches/10/contents", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	guest := call("")
	assert.Equal(t, true, guest["locked"])
	first := guest["items"].([]any)[0].(map[string]any)
	assert.NotContains(t, first, "media_url")

	badToken := call("forged")
	assert.Equal(t, true, badToken["locked"])

	student := call("student-token")
	assert.Equal(t, false, student["locked"])
	first = student["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "https://cdn.example.com/k.mp4", first["media_url"])
}

func TestHandler_ListRejectsBadBatchID(t *testing.T) {
	svc, _ := fixture(&stubLedger{})

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, middleware.OptionalAuth(stubVerifier{}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/batches/abc/contents", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
