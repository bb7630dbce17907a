package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"course-unit-access/internal/domain"
	"course-unit-access/internal/domain/model"
	"course-unit-access/internal/domain/ports/repository"
	"course-unit-access/internal/usecase"
)

// Server exposes the code issuance, redemption and access-check operations
// over HTTP. Admin routes sit behind the JWT guard; the redemption and
// access routes are called by the user-facing and content-serving
// collaborators, which do their own authentication upstream.
type Server struct {
	admin    *usecase.AdminCodeService
	redeemer *usecase.RedemptionEngine
	access   *usecase.AccessEvaluator
	log      *zerolog.Logger
}

func NewServer(admin *usecase.AdminCodeService, redeemer *usecase.RedemptionEngine, access *usecase.AccessEvaluator, logger *zerolog.Logger) *Server {
	return &Server{admin: admin, redeemer: redeemer, access: access, log: logger}
}

// Routes builds the chi router with the middleware chain applied.
func (s *Server) Routes(jwtSecret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return Chain(next, TraceID(s.log), RequestLog(s.log), Recover(s.log), Timeout(15*time.Second))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return AdminAuth(jwtSecret, s.log)(next) })
			r.Post("/admin/codes", s.handleIssue)
			r.Get("/admin/codes", s.handleList)
			r.Delete("/admin/codes/{id}", s.handleDelete)
			r.Post("/admin/codes/bulk-delete", s.handleBulkDelete)
		})
		r.Post("/codes/redeem", s.handleRedeem)
		r.Get("/access/{courseID}/{unitID}", s.handleCheckAccess)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return r
}

type issueRequest struct {
	CourseID      string     `json:"course_id"`
	UnitID        string     `json:"unit_id"`
	AccessStartAt time.Time  `json:"access_start_at"`
	AccessEndAt   time.Time  `json:"access_end_at"`
	Quantity      int        `json:"quantity"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
}

type codeResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	CourseID      string     `json:"course_id"`
	UnitID        string     `json:"unit_id"`
	AccessStartAt time.Time  `json:"access_start_at"`
	AccessEndAt   time.Time  `json:"access_end_at"`
	CodeExpiresAt time.Time  `json:"code_expires_at"`
	IsUsed        bool       `json:"is_used"`
	UsedBy        *string    `json:"used_by,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toCodeResponse(c *model.AccessCode) codeResponse {
	return codeResponse{
		ID:            c.ID,
		Code:          c.Code,
		CourseID:      c.CourseID,
		UnitID:        c.UnitID,
		AccessStartAt: c.AccessWindow.StartAt,
		AccessEndAt:   c.AccessWindow.EndAt,
		CodeExpiresAt: c.CodeExpiresAt,
		IsUsed:        c.IsUsed,
		UsedBy:        c.UsedByUserID,
		UsedAt:        c.UsedAt,
		CreatedBy:     c.CreatedBy,
		CreatedAt:     c.CreatedAt,
	}
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	params := usecase.IssueParams{
		CourseID: req.CourseID,
		UnitID:   req.UnitID,
		Window:   model.AccessWindow{StartAt: req.AccessStartAt, EndAt: req.AccessEndAt},
		Quantity: req.Quantity,
		IssuedBy: AdminID(r.Context()),
	}
	if req.CodeExpiresAt != nil {
		params.CodeExpiresAt = *req.CodeExpiresAt
	}

	codes, err := s.admin.Issue(r.Context(), params)
	if err != nil {
		// Partial batches still report what was created.
		if len(codes) > 0 {
			out := make([]codeResponse, 0, len(codes))
			for _, c := range codes {
				out = append(out, toCodeResponse(c))
			}
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":  "partial_batch",
				"issued": out,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	out := make([]codeResponse, 0, len(codes))
	for _, c := range codes {
		out = append(out, toCodeResponse(c))
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"codes": out})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.CodeListFilter{
		CourseID: q.Get("course_id"),
		UnitID:   q.Get("unit_id"),
		Query:    q.Get("q"),
	}
	if v := q.Get("used"); v != "" {
		used, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", "used must be a boolean")
			return
		}
		filter.Used = &used
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	codes, total, err := s.admin.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]codeResponse, 0, len(codes))
	for _, c := range codes {
		out = append(out, toCodeResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"codes": out, "total": total})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs        []string `json:"ids"`
	CourseID   string   `json:"course_id,omitempty"`
	UnitID     string   `json:"unit_id,omitempty"`
	OnlyUnused *bool    `json:"only_unused,omitempty"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	onlyUnused := true
	if req.OnlyUnused != nil {
		onlyUnused = *req.OnlyUnused
	}
	deleted, err := s.admin.BulkDelete(r.Context(), req.IDs, repository.CodeListFilter{CourseID: req.CourseID, UnitID: req.UnitID}, onlyUnused)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_count": deleted})
}

type redeemRequest struct {
	Code     string `json:"code"`
	CourseID string `json:"course_id"`
	UnitID   string `json:"unit_id"`
	UserID   string `json:"user_id"`
}

type grantResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CourseID      string    `json:"course_id"`
	UnitID        string    `json:"unit_id"`
	AccessStartAt time.Time `json:"access_start_at"`
	AccessEndAt   time.Time `json:"access_end_at"`
	Source        string    `json:"source"`
	OriginCodeID  string    `json:"origin_code_id"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	grant, err := s.redeemer.Redeem(r.Context(), req.Code, req.CourseID, req.UnitID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grantResponse{
		ID:            grant.ID,
		UserID:        grant.UserID,
		CourseID:      grant.CourseID,
		UnitID:        grant.UnitID,
		AccessStartAt: grant.AccessWindow.StartAt,
		AccessEndAt:   grant.AccessWindow.EndAt,
		Source:        string(grant.Source),
		OriginCodeID:  grant.OriginCodeID,
	})
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	decision, err := s.access.HasAccess(r.Context(), userID, chi.URLParam(r, "courseID"), chi.URLParam(r, "unitID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]interface{}{"has_access": decision.Granted}
	if decision.Granted {
		resp["access_end_at"] = decision.ExpiresAt
		resp["source"] = string(decision.Source)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]string{"error": reason, "message": message})
}

// writeDomainError maps each sentinel to a distinct status and reason so the
// UI can tell "already used" from "expired" from "wrong unit".
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, http.StatusBadRequest, "code_mismatch", "this code is not valid for this course or unit")
	case errors.Is(err, domain.ErrCodeNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		writeError(w, http.StatusConflict, "already_used", "this code has already been used")
	case errors.Is(err, domain.ErrCodeExpired):
		writeError(w, http.StatusGone, "code_expired", "this code has expired")
	case errors.Is(err, domain.ErrWindowExpired):
		writeError(w, http.StatusGone, "window_expired", "this code is expired for its access window")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
