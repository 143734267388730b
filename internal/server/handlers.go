package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
	"github.com/john-shalamon/exam-hall-system/internal/export"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
)

const maxRegisterNumberLen = 64

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status_url"`
}

// handleUpload accepts a multipart "file" and queues a run for it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("upload exceeds %d bytes", s.maxUpload)})
			return
		}
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "multipart field \"file\" is required", common.ErrInvalidInput))
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(hdr.Filename)
	ext := constants.NormalizeExt(filepath.Ext(name))
	if constants.MapExtToFormat(ext) == "" {
		s.writeError(w, r, common.NewStageError(common.ErrFormat, string(constants.StageReading),
			fmt.Sprintf("unsupported file type %q", ext), nil))
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, common.NewAppError(common.CodeInvalidInput, "read upload", errors.Join(common.ErrInvalidInput, err)))
		return
	}

	run, err := s.queue.Enqueue(r.Context(), pipeline.Source{Name: name, Payload: payload}, nil)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	loc := "/api/runs/" + run.ID().String()
	w.Header().Set("Location", loc)
	writeJSON(w, http.StatusAccepted, uploadResponse{RunID: run.ID().String(), Status: loc})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	if err := common.NewValidator().Field("id", raw, common.Required, common.UUID).Error(); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, ok := s.queue.Get(uuid.MustParse(raw))
	if !ok {
		s.writeError(w, r, common.NewAppError("NOT_FOUND", "run not found", common.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, run.Status())
}

type setupResponse struct {
	TableExists bool   `json:"table_exists"`
	Dialect     string `json:"dialect"`
	SQL         string `json:"sql"`
}

func (s *Server) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	exists, err := s.repo.TableExists(r.Context())
	if err != nil {
		s.writeError(w, r, errors.Join(common.ErrDatabase, err))
		return
	}
	sql, err := repository.SchemaSQL(s.repo.Dialect(), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setupResponse{TableExists: exists, Dialect: string(s.repo.Dialect()), SQL: sql})
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	seed, _ := strconv.ParseBool(r.URL.Query().Get("seed"))
	if err := s.repo.Provision(r.Context(), seed); err != nil {
		s.writeError(w, r, errors.Join(common.ErrDatabase, err))
		return
	}
	s.logger.Info("table provisioned", "seed", seed, "dialect", s.repo.Dialect())
	writeJSON(w, http.StatusOK, map[string]any{"table_exists": true, "seeded": seed})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	reg := r.PathValue("register_number")
	v := common.NewValidator().Field("register_number", reg, common.Required, common.MaxLength(maxRegisterNumberLen))
	if err := v.Error(); err != nil {
		s.writeError(w, r, err)
		return
	}
	got, err := s.repo.SelectByKey(r.Context(), reg)
	if err != nil {
		s.writeError(w, r, errors.Join(common.ErrDatabase, err))
		return
	}
	if got == nil {
		s.writeError(w, r, common.NewAppError("NOT_FOUND", fmt.Sprintf("no allocation for %s", reg), common.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, got)
}

type listResponse struct {
	Items    []entity.StoredAllocation `json:"items"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
	Total    int                       `json:"total"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.repo.List(r.Context(), page)
	if err != nil {
		s.writeError(w, r, errors.Join(common.ErrDatabase, err))
		return
	}
	total, err := s.repo.Count(r.Context())
	if err != nil {
		s.writeError(w, r, errors.Join(common.ErrDatabase, err))
		return
	}
	if items == nil {
		items = []entity.StoredAllocation{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Page: page.Number, PageSize: page.Size, Total: total})
}

func parsePage(r *http.Request) (repository.Page, error) {
	var p repository.Page
	q := r.URL.Query()
	for key, dst := range map[string]*int{"page": &p.Number, "page_size": &p.Size} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, common.NewAppError(common.CodeInvalidInput, key+" must be a positive integer", common.ErrInvalidInput)
		}
		*dst = n
	}
	return p.Normalize(), nil
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "xlsx" {
		body, err := export.TemplateXLSX()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		name := constants.TemplateFileName[:len(constants.TemplateFileName)-len(".csv")] + ".xlsx"
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		_, _ = w.Write(body)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.TemplateFileName))
	_, _ = w.Write(export.TemplateCSV())
}
