package server

import (
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/converter"
	"github.com/goliatone/go-formflow/pkg/defaults"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// formRequest is the common payload of the evaluation endpoints.
type formRequest struct {
	Schema json.RawMessage `json:"schema"`
	Values map[string]any  `json:"values,omitempty"`
	Extras map[string]any  `json:"extras,omitempty"`
}

type errorsRequest struct {
	formRequest
	Payload map[string][]string `json:"payload"`
}

// DefaultsResponse carries the resolved initial values.
type DefaultsResponse struct {
	Values map[string]any `json:"values"`
}

// EvaluateResponse describes the first visible step for a set of values.
type EvaluateResponse struct {
	VisibleSteps []int          `json:"visibleSteps"`
	Values       map[string]any `json:"values"`
	RenderSet    form.RenderSet `json:"renderSet"`
}

// ValidateResponse lists field errors across every visible step.
// Warnings carries non-fatal schema issues such as fieldless conditions.
type ValidateResponse struct {
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors,omitempty"`
	Warnings []schema.Issue    `json:"warnings,omitempty"`
}

// ConvertResponse carries the converter result and, when valid, the schema.
type ConvertResponse struct {
	converter.Result
	Schema *schema.Schema `json:"schema,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	sch, ok := s.decodeForm(w, r, &req)
	if !ok {
		return
	}
	if issues := schema.Check(sch); len(issues) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":   "INVALID_SCHEMA",
			"error":  issues[0].Error(),
			"issues": issues,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, DefaultsResponse{Values: defaults.Resolve(sch, req.Values)})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	sess, ok := s.session(w, r, &req)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, EvaluateResponse{
		VisibleSteps: sess.VisibleSteps(),
		Values:       sess.Values(),
		RenderSet:    sess.RenderSet(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	sess, ok := s.session(w, r, &req)
	if !ok {
		return
	}
	errs := sess.Validate()
	s.writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: schema.Lint(sess.Schema()),
	})
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	var req errorsRequest
	sess, ok := s.session(w, r, &req.formRequest, &req)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.MapErrorPayload(req.Payload))
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	sch, res := converter.Convert(raw)
	if !res.Valid {
		s.writeJSON(w, http.StatusUnprocessableEntity, ConvertResponse{Result: res})
		return
	}
	s.writeJSON(w, http.StatusOK, ConvertResponse{Result: res, Schema: sch})
}

// decodeForm decodes the request into dst and parses its schema. dst
// defaults to req when the handler embeds formRequest in a larger payload.
func (s *Server) decodeForm(w http.ResponseWriter, r *http.Request, req *formRequest, dst ...any) (*schema.Schema, bool) {
	var target any = req
	if len(dst) > 0 {
		target = dst[0]
	}
	if err := s.decodeJSON(w, r, target); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return nil, false
	}
	if len(req.Schema) == 0 {
		s.writeError(w, http.StatusBadRequest, "MISSING_SCHEMA", "schema is required")
		return nil, false
	}
	sch, err := schema.ParseBytes(req.Schema, "request")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_SCHEMA", err.Error())
		return nil, false
	}
	return sch, true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request, req *formRequest, dst ...any) (*form.Session, bool) {
	sch, ok := s.decodeForm(w, r, req, dst...)
	if !ok {
		return nil, false
	}
	sess, err := form.New(sch,
		form.WithValues(req.Values),
		form.WithExtras(req.Extras),
		form.WithValidators(s.validators),
		form.WithLogger(s.logger),
	)
	if err != nil {
		s.logger.Debug("reject schema", zap.Error(err))
		s.writeError(w, http.StatusUnprocessableEntity, "INVALID_SCHEMA", err.Error())
		return nil, false
	}
	return sess, true
}
