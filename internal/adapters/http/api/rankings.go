package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/matchrisk/internal/adapters/repository"
	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/model"
)

// RankingsHandler serves ranked metrics.
type RankingsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies, maxLimit int) *RankingsHandler {
	return &RankingsHandler{deps: deps, maxLimit: maxLimit}
}

type rankingsResponse struct {
	Tier    string             `json:"tier"`
	Role    model.Role         `json:"role"`
	Metric  string             `json:"metric"`
	Entries []repository.Entry `json:"entries"`
}

// HandleGetRankings handles GET /rankings?tier=&role=&metric=&limit= requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	role := model.Role(q.Get("role"))
	if role == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing role", ErrBadRequest))
		return
	}
	metric := q.Get("metric")
	if metric == "" {
		metric = string(cohort.MetricExpectedMin)
	}

	limit := defaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid limit %q", ErrBadRequest, s))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
		return
	}

	query := RankingQuery{
		Tier:   model.ParseTier(q.Get("tier")),
		Role:   role,
		Metric: metric,
		Limit:  limit,
	}
	entries, err := h.deps.Rankings(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingsResponse{
		Tier:    model.TierLabel(query.Tier),
		Role:    role,
		Metric:  metric,
		Entries: entries,
	})
}
