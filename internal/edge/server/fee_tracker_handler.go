package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pickslab/picks-edge/internal/reconcile"
	"github.com/pickslab/picks-edge/pkg/logger"
)

// handleCreatorFeeTracker reconciles one mined transaction into trade rows
// and fee counters, then kicks off the best-effort volume refreshes and the
// websocket broadcast.
func (s *Server) handleCreatorFeeTracker(w http.ResponseWriter, r *http.Request) {
	var req reconcile.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json body")
		return
	}

	// Budget covers the full receipt-polling window plus persistence.
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result, err := s.reconciler.Run(ctx, req)
	if err != nil {
		var pe *reconcile.PipelineError
		if errors.As(err, &pe) {
			if pe.Err != nil {
				writeErrorDetails(w, pe.Status, pe.Message, pe.Err.Error())
			} else {
				writeError(w, pe.Status, pe.Message)
			}
			return
		}
		writeError(w, 500, err.Error())
		return
	}

	if result.TradesInserted > 0 {
		s.hub.broadcastTrades(result.InsertedRows)
		go s.refreshPickVolume(req.PickID)
		for _, userID := range result.TraderUserIDs {
			go s.refreshUserVolume(userID)
		}
	}

	writeJSON(w, 200, map[string]any{
		"success":        true,
		"tradesInserted": result.TradesInserted,
		"totalVolumeWei": result.TotalVolumeWei.String(),
		"creatorFeeWei":  result.CreatorFeeWei.String(),
	})
	logger.Debugf("creator-fee-tracker done pick=%s tx=%s inserted=%d", req.PickID, req.TxHash, result.TradesInserted)
}
