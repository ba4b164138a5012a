// AngelaMos | 2026
// handler_test.go

package otp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/identity"
)

func newRouter(f *fixture) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RegistrationRoundTrip(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := doJSON(t, router, http.MethodPost, "/otp",
		`{"email":"s@x.com","classType":"11th","examPreference":"JEE","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var issued IssueResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&issued))
	assert.Equal(t, "s@x.com", issued.Email)
	assert.Equal(t, 120, issued.ExpiresIn)

	rec = doJSON(t, router, http.MethodPost, "/otp/verify",
		`{"email":"s@x.com","otp":"`+f.code+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created identity.IdentityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, identity.RoleStudent, created.Role)
	assert.Equal(t, "s@x.com", created.Email)
	assert.Equal(t, "11th", created.ClassLevel)
	assert.Equal(t, "JEE", created.ExamPreference)
}

func TestHandler_IssueValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "short password",
			body: `{"email":"s@x.com","classType":"11th","examPreference":"JEE","password":"abc"}`,
			want: "password must be at least 6",
		},
		{
			name: "malformed email",
			body: `{"email":"not-an-email","classType":"11th","examPreference":"JEE","password":"secret1"}`,
			want: "email must be a valid email",
		},
		{
			name: "missing exam preference",
			body: `{"email":"s@x.com","classType":"11th","password":"secret1"}`,
			want: "examPreference is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			rec := doJSON(t, newRouter(f), http.MethodPost, "/otp", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body core.ErrorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			assert.Contains(t, body.Error, tt.want)
			assert.Empty(t, f.mailer.sent)
		})
	}
}
