package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/prompt"
	"github.com/koustreak/pgmeta/internal/summary"
)

const (
	contentTypeYAML = "application/yaml"
	contentTypeText = "text/plain; charset=utf-8"

	maxQueryBytes = 1 << 20

	defaultPreviewLimit = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBody(w, http.StatusOK, contentTypeText, "ok\n")
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.SchemaSummary(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBody(w, http.StatusOK, contentTypeYAML, out)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	out, err := s.backend.TableDescription(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBody(w, http.StatusOK, contentTypeYAML, out)
}

// handleRows serves a bounded, parameterized read of one table:
// ?columns=a,b&order_by=c&desc=true&limit=n
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	b, err := previewFromQuery(chi.URLParam(r, "schema"), chi.URLParam(r, "table"), r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.backend.PreviewYAML(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBody(w, http.StatusOK, contentTypeYAML, out)
}

func previewFromQuery(schema, table string, r *http.Request) (*database.SelectBuilder, error) {
	q := r.URL.Query()
	b := database.Select(schema, table)

	if cols := q.Get("columns"); cols != "" {
		b.Columns(strings.Split(cols, ",")...)
	}
	if col := q.Get("order_by"); col != "" {
		dir := database.Asc
		if desc, _ := strconv.ParseBool(q.Get("desc")); desc {
			dir = database.Desc
		}
		b.OrderBy(col, dir)
	}

	limit := defaultPreviewLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid limit", err)
		}
		limit = n
	}
	return b.Limit(limit), nil
}

type queryRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	sql, err := readSQL(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.backend.QueryYAML(r.Context(), sql)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBody(w, http.StatusOK, contentTypeYAML, out)
}

// readSQL takes the statement from a JSON {"sql": ...} body or, for any
// other content type, the raw body.
func readSQL(w http.ResponseWriter, r *http.Request) (string, error) {
	body := http.MaxBytesReader(w, r.Body, maxQueryBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var req queryRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid JSON body", err)
		}
		return req.SQL, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", errs.Wrap(errs.ErrKindInvalidInput, "query body too large", err)
		}
		return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to read body", err)
	}
	return string(raw), nil
}

func (s *Server) handleSchemaPrompt(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusOK, contentTypeText, prompt.SchemaDescription(chi.URLParam(r, "schema")))
}

func (s *Server) handleTablePrompt(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusOK, contentTypeText, prompt.TableDescription(chi.URLParam(r, "schema"), chi.URLParam(r, "table")))
}

func (s *Server) handleQueryPrompt(w http.ResponseWriter, r *http.Request) {
	writeBody(w, http.StatusOK, contentTypeText, prompt.QueryTable(chi.URLParam(r, "schema"), chi.URLParam(r, "table")))
}

type errorBody struct {
	Error string `yaml:"error"`
	Kind  string `yaml:"kind"`
	Code  string `yaml:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.ErrorWith("request failed", err, map[string]interface{}{"path": r.URL.Path, "status": status})
	} else {
		log.With().Err(err).Int("status", status).Logger().Debug("request rejected")
	}

	msg := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		msg = e.Message
	}

	out, rerr := summary.YAML(errorBody{
		Error: msg,
		Kind:  errs.KindOf(err).String(),
		Code:  errs.CodeOf(err),
	})
	if rerr != nil {
		http.Error(w, strings.TrimSpace(msg), status)
		return
	}
	writeBody(w, status, contentTypeYAML, out)
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindQuery, errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConnection:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeBody(w http.ResponseWriter, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
