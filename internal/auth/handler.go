// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/contacts-backend/internal/avatar"
	"github.com/carterperez-dev/contacts-backend/internal/core"
	"github.com/carterperez-dev/contacts-backend/internal/middleware"
)

const (
	avatarFormField = "avatarURL"

	maxFormFieldBytes = 4 << 10
	multipartOverhead = 64 << 10
)

// Stager writes multipart file parts into the upload temp dir.
type Stager interface {
	Stage(src io.Reader, filename string) (*avatar.Upload, error)
	Discard(u *avatar.Upload)
	MaxUploadBytes() int64
}

type Handler struct {
	service   *Service
	stager    Stager
	validator *validator.Validate
}

func NewHandler(service *Service, stager Stager) *Handler {
	return &Handler{
		service:   service,
		stager:    stager,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts the account routes under /users. Public routes get
// publicMW (typically a per-IP limiter), the rest run behind authenticator
// and then authMW.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	publicMW []func(http.Handler) http.Handler,
	authMW []func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(publicMW...)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/verify", h.ResendVerification)
		})
		r.Get("/verify/{verificationToken}", h.Verify)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(authMW...)
			r.Get("/current", h.GetCurrent)
			r.Post("/logout", h.Logout)
			r.Patch("/", h.UpdateSubscription)
			r.Patch("/avatars", h.UpdateAvatar)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var (
		req    RegisterRequest
		upload *avatar.Upload
	)

	if isMultipart(r) {
		fields := map[string]*string{
			"email":    &req.Email,
			"password": &req.Password,
		}
		var err error
		upload, err = h.readMultipart(w, r, fields)
		if err != nil {
			writeError(w, err)
			return
		}
		defer h.stager.Discard(upload)
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	profile, err := h.service.Signup(r.Context(), req, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, profile)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "verificationToken")

	if err := h.service.Verify(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "verification successful"})
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "verification email sent"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Signin(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.TokenInvalidError())
		return
	}

	core.OK(w, h.service.GetCurrent(p))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.TokenInvalidError())
		return
	}

	if err := h.service.Logout(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.TokenInvalidError())
		return
	}

	var req UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	profile, err := h.service.UpdateSubscription(r.Context(), p, req.Subscription)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, profile)
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.TokenInvalidError())
		return
	}

	if !isMultipart(r) {
		core.BadRequest(w, "multipart form with an avatarURL file is required")
		return
	}

	upload, err := h.readMultipart(w, r, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.stager.Discard(upload)

	if upload == nil {
		core.BadRequest(w, "avatarURL file is required")
		return
	}

	resp, err := h.service.UpdateAvatar(r.Context(), p, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, resp)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readMultipart streams the form: text parts named in fields are copied
// into them and the avatar file part is staged on disk. Unknown parts are
// skipped.
func (h *Handler) readMultipart(
	w http.ResponseWriter,
	r *http.Request,
	fields map[string]*string,
) (*avatar.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.stager.MaxUploadBytes()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, malformedBody(err)
	}

	var upload *avatar.Upload
	fail := func(err error) (*avatar.Upload, error) {
		h.stager.Discard(upload)
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(malformedBody(err))
		}

		name := part.FormName()
		switch {
		case name == avatarFormField && part.FileName() != "":
			if upload != nil {
				_ = part.Close()
				return fail(fmt.Errorf(
					"read multipart: more than one avatar file: %w",
					core.ErrInvalidInput,
				))
			}
			upload, err = h.stager.Stage(part, part.FileName())
			if err != nil {
				_ = part.Close()
				if isTooLarge(err) {
					return fail(malformedBody(err))
				}
				return fail(err)
			}
		case fields[name] != nil:
			value, readErr := io.ReadAll(io.LimitReader(part, maxFormFieldBytes))
			if readErr != nil {
				_ = part.Close()
				return fail(malformedBody(readErr))
			}
			*fields[name] = strings.TrimSpace(string(value))
		}

		_ = part.Close()
	}

	return upload, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailExists):
		core.JSONError(w, core.DuplicateError("email"))
	case errors.Is(err, ErrInvalidCredentials):
		core.JSONError(w, core.NewAppError(
			err,
			"email or password is wrong",
			http.StatusUnauthorized,
			"INVALID_CREDENTIALS",
		))
	case errors.Is(err, ErrEmailNotVerified):
		core.JSONError(w, core.NewAppError(
			err,
			"email not verified",
			http.StatusUnauthorized,
			"EMAIL_NOT_VERIFIED",
		))
	case errors.Is(err, ErrAlreadyVerified):
		core.JSONError(w, core.NewAppError(
			err,
			"verification has already been passed",
			http.StatusBadRequest,
			"ALREADY_VERIFIED",
		))
	case errors.Is(err, core.ErrTokenInvalid):
		core.JSONError(w, core.TokenInvalidError())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, invalidInputMessage(err))
	default:
		core.InternalServerError(w, err)
	}
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func malformedBody(err error) error {
	if isTooLarge(err) {
		return fmt.Errorf("read multipart: request body too large: %w", core.ErrInvalidInput)
	}
	return fmt.Errorf("read multipart: malformed form (%v): %w", err, core.ErrInvalidInput)
}

// invalidInputMessage keeps the innermost context of a wrapped
// core.ErrInvalidInput, e.g. `unsupported avatar extension ".svg"`.
func invalidInputMessage(err error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+core.ErrInvalidInput.Error())
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}
