package api

import (
	"net/http"
	"strings"

	"github.com/okian/matchrisk/internal/domain/aggregate"
	"github.com/okian/matchrisk/internal/domain/model"
)

// ProfileHandler serves one entity's role statistics.
type ProfileHandler struct {
	deps Dependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps Dependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

type profileResponse struct {
	EntityID  string                             `json:"entity_id"`
	Name      string                             `json:"name,omitempty"`
	Tier      string                             `json:"tier"`
	Games     map[model.Role]int                 `json:"games"`
	PlayRates map[model.Role]float64             `json:"play_rates"`
	Stats     map[model.Role]aggregate.RoleStats `json:"stats,omitempty"`
	Ranks     map[model.Role]map[string]int      `json:"ranks,omitempty"`
}

// HandleGetProfile handles GET /profiles/{entity_id}?tier= requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/profiles/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	tier := model.ParseTier(r.URL.Query().Get("tier"))
	view, err := h.deps.Profile(r.Context(), tier, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		EntityID:  id,
		Name:      view.Name,
		Tier:      model.TierLabel(tier),
		Games:     view.Entity.Games,
		PlayRates: view.Entity.PlayRates,
		Stats:     view.Entity.Stats,
		Ranks:     view.Ranks,
	})
}
