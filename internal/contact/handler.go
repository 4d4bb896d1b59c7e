// AngelaMos | 2026
// handler.go

package contact

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/contacts-backend/internal/core"
	"github.com/carterperez-dev/contacts-backend/internal/middleware"
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

// RegisterRoutes mounts /contacts behind authenticator followed by mw.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	mw ...func(http.Handler) http.Handler,
) {
	r.Route("/contacts", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(mw...)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{contactID}", h.Get)
		r.Put("/{contactID}", h.Update)
		r.Delete("/{contactID}", h.Delete)
		r.Patch("/{contactID}/favorite", h.UpdateFavorite)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	query := r.URL.Query()

	params := ListParams{
		Page:  parseIntQuery(r, "page", DefaultPage),
		Limit: parseIntQuery(r, "limit", DefaultLimit),
		Name:  query.Get("name"),
		Email: query.Get("email"),
	}

	if raw := query.Get("favorite"); raw != "" {
		favorite, err := strconv.ParseBool(raw)
		if err != nil {
			core.BadRequest(w, "favorite must be true or false")
			return
		}
		params.Favorite = &favorite
	}

	result, err := h.service.List(r.Context(), ownerID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Paginated(
		w,
		ToContactResponseList(result.Contacts),
		result.Page,
		result.Limit,
		result.Total,
	)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	c, err := h.service.Get(r.Context(), ownerID, chi.URLParam(r, "contactID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToContactResponse(c))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Create(r.Context(), ownerID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToContactResponse(c))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	var req UpdateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.Update(r.Context(), ownerID, chi.URLParam(r, "contactID"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToContactResponse(c))
}

func (h *Handler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	var req UpdateFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	c, err := h.service.SetFavorite(
		r.Context(),
		ownerID,
		chi.URLParam(r, "contactID"),
		*req.Favorite,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToContactResponse(c))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	if _, err := h.service.Delete(r.Context(), ownerID, chi.URLParam(r, "contactID")); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "contact deleted"})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "contact")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "missing fields")
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
