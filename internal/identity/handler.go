// AngelaMos | 2026
// handler.go

package identity

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterPublicRoutes mounts the unauthenticated role lookup. The caller is
// expected to wrap it in a strict rate limiter.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/role-check", h.RoleCheck)
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/students", h.ListStudents)
		r.Get("/admin/students/{userID}", h.GetStudent)
		r.Put("/admin/students/{userID}/active", h.SetActive)
	})
}

func (h *Handler) RoleCheck(w http.ResponseWriter, r *http.Request) {
	var req RoleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	core.OK(w, h.service.ResolveRole(r.Context(), req.Email))
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	identity, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToIdentityResponse(identity))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	identity, err := h.service.UpdateMe(r.Context(), userID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToIdentityResponse(identity))
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.DeleteMe(r.Context(), userID); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))           //nolint:errcheck // defaults applied in Normalize
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults applied in Normalize

	params := ListStudentsParams{
		Page:           page,
		PageSize:       pageSize,
		Search:         q.Get("search"),
		ClassLevel:     q.Get("class_type"),
		ExamPreference: q.Get("exam_preference"),
	}
	params.Normalize()

	identities, total, err := h.service.ListStudents(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToIdentityResponseList(identities),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.GetStudent(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToIdentityResponse(identity))
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	identity, err := h.service.SetActive(
		r.Context(),
		chi.URLParam(r, "userID"),
		*req.Active,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToIdentityResponse(identity))
}
