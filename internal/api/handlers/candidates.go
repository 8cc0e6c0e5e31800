package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rosterlab/rosterlab/internal/store"
	"github.com/rosterlab/rosterlab/pkg/models"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// filterParams are the query parameters that switch on eligibility
// filtering of search results.
var filterParams = []string{
	"format", "monotypeType",
	"allowLegendary", "allowMythical", "allowParadox", "allowUltraBeast",
}

// ListCandidates handles GET /api/v1/candidates?q=&limit=
//
// Results are filtered for eligibility only when at least one of the
// configuration parameters (format, monotypeType, allow*) is present.
func (h *Handlers) ListCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, models.CodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	cfg, filtered := searchConfig(q)

	// Over-fetch when filtering so a page is not emptied by rejections.
	fetch := limit
	if filtered {
		fetch = maxSearchLimit * 2
	}
	found, err := h.Store.Search(r.Context(), q.Get("q"), fetch)
	if err != nil {
		log.Error().Err(err).Msg("Candidate search failed")
		respondError(w, http.StatusInternalServerError, models.CodeInternal, "search failed")
		return
	}
	if filtered {
		found = h.Filter.Apply(found, cfg, nil)
	}
	if len(found) > limit {
		found = found[:limit]
	}
	if found == nil {
		found = []models.Candidate{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": found,
		"count":      len(found),
	})
}

// GetCandidate handles GET /api/v1/candidates/{id}
func (h *Handlers) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		respondError(w, http.StatusBadRequest, models.CodeInvalidRequest, "id must be a non-negative integer")
		return
	}

	c, err := h.Store.GetCandidate(r.Context(), id)
	var nf *store.ErrNotFound
	if errors.As(err, &nf) {
		respondError(w, http.StatusNotFound, models.CodeNotFound, nf.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Int("id", id).Msg("Candidate lookup failed")
		respondError(w, http.StatusInternalServerError, models.CodeInternal, "lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func searchConfig(q map[string][]string) (models.Configuration, bool) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	filtered := false
	for _, k := range filterParams {
		if _, ok := q[k]; ok {
			filtered = true
			break
		}
	}
	flag := func(k string) bool {
		b, _ := strconv.ParseBool(get(k))
		return b
	}
	cfg := models.Configuration{
		Format:          get("format"),
		AllowLegendary:  flag("allowLegendary"),
		AllowMythical:   flag("allowMythical"),
		AllowParadox:    flag("allowParadox"),
		AllowUltraBeast: flag("allowUltraBeast"),
		MonotypeType:    get("monotypeType"),
	}
	cfg.Monotype = cfg.MonotypeType != ""
	return cfg, filtered
}
