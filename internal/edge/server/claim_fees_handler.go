package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type claimFeesRequest struct {
	PickID string   `json:"pickId"`
	Pools  []string `json:"pools"`
}

// handleClaimFees triggers the legacy off-chain pool claim for explicit
// pools or for the pool linked to a pick. Per-pool failures are reported in
// the results array; only a fully empty resolution is an error.
func (s *Server) handleClaimFees(w http.ResponseWriter, r *http.Request) {
	if s.claimer == nil {
		writeError(w, 503, "fee claiming is not configured")
		return
	}

	var req claimFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	pools := req.Pools
	if len(pools) == 0 {
		if strings.TrimSpace(req.PickID) == "" {
			writeError(w, 400, "pickId or pools is required")
			return
		}
		meta, err := s.store.getPickMeta(ctx, req.PickID)
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		if meta == nil {
			writeError(w, 404, "pick not found")
			return
		}
		if meta.PoolAddress == nil || strings.TrimSpace(*meta.PoolAddress) == "" {
			writeError(w, 400, "pick has no legacy fee pool")
			return
		}
		pools = []string{*meta.PoolAddress}
	}

	results := s.claimer.ClaimAll(ctx, pools)
	success := true
	for _, res := range results {
		if !res.OK {
			success = false
		}
	}
	writeJSON(w, 200, map[string]any{"success": success, "results": results})
}
