// AngelaMos | 2026
// handler.go

package batch

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/examprep/internal/core"
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/batches", h.ListActive)
	r.Get("/batches/{batchID}", h.GetActive)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/batches", h.ListAll)
		r.Post("/admin/batches", h.Create)
		r.Put("/admin/batches/{batchID}", h.Update)
		r.Delete("/admin/batches/{batchID}", h.Delete)
	})
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))           //nolint:errcheck // defaults applied in Normalize
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults applied in Normalize

	params := ListParams{
		Page:       page,
		PageSize:   pageSize,
		Category:   q.Get("category"),
		ClassLevel: q.Get("class_type"),
		ActiveOnly: activeOnly,
	}
	params.Normalize()

	items, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, items, params.Page, params.PageSize, total)
}

func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := BatchIDParam(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetActive(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, h.service.Describe(r.Context(), b))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	b, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, ToBatchResponse(b, 0))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := BatchIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	b, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, h.service.Describe(r.Context(), b))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := BatchIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

// BatchIDParam parses the {batchID} URL parameter, writing a 400 when it is
// not a positive integer.
func BatchIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil || id <= 0 {
		core.BadRequest(w, "invalid batch id")
		return 0, false
	}
	return id, true
}
