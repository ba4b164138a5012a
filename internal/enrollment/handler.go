// AngelaMos | 2026
// handler.go

package enrollment

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the student ledger reads. Payment routes share the
// /enrollment prefix and are registered by the payment handler.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, studentOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(studentOnly)

		r.Get("/enrollment/status", h.GetStatus)
		r.Get("/enrollment/mine", h.ListMine)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/admin/batches/{batchID}/enrollments", h.ListByBatch)
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	batchID, err := strconv.ParseInt(r.URL.Query().Get("batchId"), 10, 64)
	if err != nil || batchID <= 0 {
		core.BadRequest(w, "batchId must be a positive integer")
		return
	}

	status, err := h.service.GetStatus(
		r.Context(),
		middleware.GetUserID(r.Context()),
		batchID,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, status)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListForStudent(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToEnrollmentResponseList(items))
}

func (h *Handler) ListByBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := strconv.ParseInt(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		core.BadRequest(w, "invalid batch id")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))           //nolint:errcheck // defaults applied in service
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults applied in service
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.service.ListByBatch(r.Context(), batchID, page, pageSize)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Paginated(w, ToEnrollmentResponseList(items), page, pageSize, total)
}
