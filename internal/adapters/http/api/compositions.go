package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/okian/squad/internal/domain/model"
)

const maxRequestBody = 1 << 16

// compositionRequest is the body of POST /compositions. Every field is
// optional; omitted knobs fall back to the dataset preset.
type compositionRequest struct {
	ID          string   `json:"id" validate:"omitempty,max=128,printascii"`
	Alpha       *float64 `json:"alpha" validate:"omitempty,gte=0,lte=1"`
	Beta        *float64 `json:"beta" validate:"omitempty,gte=0,lte=1"`
	Budget      *float64 `json:"budget" validate:"omitempty,gt=0"`
	DefenseSeed *int64   `json:"defense_seed"`
	AttackSeed  *int64   `json:"attack_seed"`
}

func (c compositionRequest) model() model.CompositionRequest {
	return model.CompositionRequest{
		ID:          strings.TrimSpace(c.ID),
		Alpha:       c.Alpha,
		Beta:        c.Beta,
		Budget:      c.Budget,
		DefenseSeed: c.DefenseSeed,
		AttackSeed:  c.AttackSeed,
	}
}

// CompositionsHandler serves submission and lookup of compositions.
type CompositionsHandler struct {
	deps     Dependencies
	validate *validator.Validate
	maxLimit int
}

// NewCompositionsHandler creates a new compositions handler.
func NewCompositionsHandler(deps Dependencies, maxLimit int) *CompositionsHandler {
	if maxLimit < 1 {
		maxLimit = 100
	}
	return &CompositionsHandler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		maxLimit: maxLimit,
	}
}

// HandleCollection dispatches /compositions by method.
func (h *CompositionsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandlePost(w, r)
	case http.MethodGet:
		h.HandleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandlePost handles POST /compositions requests. An empty body submits a
// run with the preset params.
func (h *CompositionsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_composition"
	var req compositionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), req.model())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{ID: id, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: id, Status: string(model.StatusPending)})
}

// HandleGet handles GET /compositions/{id} requests.
func (h *CompositionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_composition"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/compositions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompositionView(rec))
}

// HandleList handles GET /compositions?limit=N requests. The limit
// defaults to the configured maximum.
func (h *CompositionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_compositions"
	n := h.maxLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	recs, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	views := make([]compositionView, 0, len(recs))
	for i := range recs {
		views = append(views, newCompositionView(recs[i]))
	}
	writeJSON(w, http.StatusOK, views)
}
