package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/conneroisu/randomall/internal/blocks"
	"github.com/conneroisu/randomall/internal/engine"
	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/head"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/storage"
	"github.com/conneroisu/randomall/internal/types"
	"github.com/conneroisu/randomall/internal/version"
)

// MaxRequestBytes caps JSON request bodies.
const MaxRequestBytes = 8 << 20

// errorBody is the JSON shape of API failures.
type errorBody struct {
	Status engine.Status `json:"status"`
	Msg    string        `json:"msg"`
	Code   string        `json:"code,omitempty"`
}

// genInfo is a gen as returned by the info endpoint. Source and history are
// only included for users who may edit the gen.
type genInfo struct {
	*types.GenEntity
	AccessKey        string                 `json:"access_key,omitempty"`
	VariationsApprox string                 `json:"variations_approx"`
	History          []storage.HistoryEntry `json:"history,omitempty"`
}

type listRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Access      types.ListAccess `json:"access"`
	Content     string           `json:"content"`
	Slicer      int              `json:"slicer"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn(r.Context(), err, "Health check failed")
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]string{
		"status":  status,
		"version": version.GetVersion(),
	})
}

func (s *Server) handleCreateGen(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var doc engine.Document
	if err := decodeJSON(w, r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := engine.New(doc, s.engineDeps(), user, nil).Create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTestGen(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var doc engine.Document
	if err := decodeJSON(w, r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := engine.New(doc, s.engineDeps(), user, nil).Test(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEditGen(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	gen, err := s.loadGen(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := gen.CheckEditPermissions(user); err != nil {
		s.writeError(w, r, err)
		return
	}
	var doc engine.Document
	if err := decodeJSON(w, r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := engine.New(doc, s.engineDeps(), user, gen).Edit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenInfo(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	gen, err := s.loadGen(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := gen.CheckViewPermissions(user, r.URL.Query().Get("key")); err != nil {
		s.writeError(w, r, err)
		return
	}

	info := genInfo{GenEntity: gen, VariationsApprox: blocks.ApproximateVariations(gen.Variations)}
	if gen.CheckEditPermissions(user) == nil {
		info.AccessKey = gen.AccessKey
		info.History, err = s.store.Gens.History(r.Context(), gen.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		gen.Format = nil
		gen.Body = nil
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGenResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r)
	if res := s.limiter.Check(ip); !res.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
		s.events.Event(ctx, logging.EventGenResultLimit, map[string]any{"client_ip": ip, "path": r.URL.Path})
		s.writeError(w, r, apperrors.NewRateLimitError("RATE_LIMITED", "too many result requests"))
		return
	}

	user := userFrom(ctx)
	gen, err := s.loadGen(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := gen.CheckViewPermissions(user, r.URL.Query().Get("key")); err != nil {
		s.writeError(w, r, err)
		return
	}

	doc := engine.Document{Format: gen.Format, Body: gen.Body}
	resp, err := engine.New(doc, s.engineDeps(), user, gen).Generate(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.events.Event(ctx, logging.EventGenResult, map[string]any{"gen_id": gen.ID})
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangeKey(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	gen, err := s.loadGen(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := gen.CheckEditPermissions(user); err != nil {
		s.writeError(w, r, err)
		return
	}

	key, err := s.store.Gens.ChangeAccessKey(r.Context(), gen.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.events.Event(r.Context(), logging.EventGenAccessKey, map[string]any{"gen_id": gen.ID, "user_id": user.ID})
	s.writeJSON(w, http.StatusOK, map[string]string{"access_key": key})
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req listRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.store.Lists.Create(r.Context(), user, types.ListEntity{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Access:      req.Access,
		Active:      true,
		Content:     req.Content,
		Slicer:      req.Slicer,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.events.Event(r.Context(), logging.EventListCreate, map[string]any{"list_id": id, "user_id": user.ID})
	s.writeJSON(w, http.StatusOK, &engine.SaveResponse{Status: engine.StatusSave, Msg: engine.SaveID{ID: id}})
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.store.Lists.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := list.CheckViewPermissions(userFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (req *listRequest) validate() error {
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		return apperrors.NewValidationError("LIST_TITLE", "title is blank")
	case utf8.RuneCountInString(title) > head.TitleLimit:
		return apperrors.NewValidationError("LIST_TITLE", "title is too long")
	case utf8.RuneCountInString(strings.TrimSpace(req.Description)) > head.DescriptionLimit:
		return apperrors.NewValidationError("LIST_DESCRIPTION", "description is too long")
	case strings.TrimSpace(req.Content) == "":
		return apperrors.NewValidationError("LIST_CONTENT", "content is blank")
	case len(req.Content) > blocks.ContentLimitBytes:
		return apperrors.NewValidationError("LIST_CONTENT", "content is too long")
	case req.Access != types.ListPublic && req.Access != types.ListPrivate:
		return apperrors.NewValidationError("LIST_ACCESS", "unknown access")
	}
	return nil
}

func (s *Server) loadGen(r *http.Request) (*types.GenEntity, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return s.store.Gens.Get(r.Context(), id)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFoundError("BAD_ID", "malformed id").WithContext("id", r.PathValue("id"))
	}
	return id, nil
}

func requireUser(r *http.Request) (*types.User, error) {
	user := userFrom(r.Context())
	if user == nil {
		return nil, apperrors.NewForbiddenError("AUTH_REQUIRED", "authentication required")
	}
	return user, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationError("BAD_REQUEST", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Warn(context.Background(), err, "Failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Request failed", "method", r.Method, "path", r.URL.Path)
	}

	body := errorBody{Status: engine.StatusError, Msg: s.errorMessage(err)}
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		body.Code = ae.Code
	}
	s.writeJSON(w, status, body)
}

func (s *Server) errorMessage(err error) string {
	var ae *apperrors.AppError
	if errors.As(err, &ae) && ae.Code == "AUTH_REQUIRED" {
		return s.catalog.T("api.errors.auth_required")
	}

	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return s.catalog.T("api.errors.validation")
	case apperrors.ErrorTypeNotFound:
		return s.catalog.T("api.errors.not_found")
	case apperrors.ErrorTypeForbidden:
		return s.catalog.T("api.errors.forbidden")
	case apperrors.ErrorTypeLocked:
		return s.catalog.T("api.errors.locked")
	case apperrors.ErrorTypeRateLimit:
		return s.catalog.T("api.errors.rate_limited")
	default:
		return s.catalog.ServerError()
	}
}
