package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/veleda/ansuz/internal/apperr"
)

const maxSubjectBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// subjectName extracts the subject name from the URL, decoding the escaped
// form clients send.
func subjectName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// SignUp handles POST /auth/signup.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	grant, err := h.svc.SignUp(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		} else {
			slog.Error("sign up failed", slog.String("username", req.Username), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(grant))
}

// SignIn handles POST /auth/signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	grant, err := h.svc.SignIn(r.Context(), req.Username, req.Password, req.RefreshToken)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		} else {
			slog.Error("sign in failed", slog.String("username", req.Username), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(grant))
}

// SignOut handles POST /auth/signout. Tokens are stateless, so there is
// nothing to revoke server-side; the client discards its copies.
func (h *Handler) SignOut(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func sessionResponse(g *Grant) SessionResponse {
	return SessionResponse{
		Username:         g.Username,
		Token:            g.Access,
		Refresh:          g.Refresh,
		TokenExpiresAt:   g.AccessExpiry,
		RefreshExpiresAt: g.RefreshExpiry,
	}
}

// ListSubjects handles GET /subjects.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListSubjects(r.Context())
	if err != nil {
		slog.Error("list subjects failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, SubjectListResponse{Subjects: names})
}

// GetSubject handles GET /subject/{name}, returning the raw markdown.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	name := subjectName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	data, err := h.svc.GetSubject(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get subject failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	sum := sha256.Sum256(data)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("ETag", fmt.Sprintf("%q", hex.EncodeToString(sum[:])))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UpdateSubject handles PUT /subject/{name} with a raw markdown body.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	h.writeSubject(w, r, false)
}

// CreateSubject handles POST /subject/{name} with a raw markdown body.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	h.writeSubject(w, r, true)
}

func (h *Handler) writeSubject(w http.ResponseWriter, r *http.Request, create bool) {
	name := subjectName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSubjectBytes)
	content, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	user := usernameFrom(r.Context())
	if create {
		err = h.svc.CreateSubject(r.Context(), name, content)
	} else {
		err = h.svc.UpdateSubject(r.Context(), name, content)
	}
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("subject already exists"))
		default:
			slog.Error("write subject failed",
				slog.String("name", name),
				slog.String("user", user),
				slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	slog.Info("subject written",
		slog.String("name", name),
		slog.String("user", user),
		slog.Bool("created", create))
	if create {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusNoContent)
	}
}
