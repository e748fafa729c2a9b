package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pickslab/picks-edge/pkg/logger"
)

// The volume refreshes recompute denormalized totals from trade rows. They
// run after the reconciler's durability guarantee is already met, so every
// failure here is logged and swallowed.

func (s *Server) refreshPickVolume(pickID string) {
	if s.refresh != nil {
		_, err := s.refresh.R().
			SetBody(map[string]string{"pickId": pickID}).
			Post("/functions/update-pick-volume")
		if err != nil {
			logger.Warnf("update-pick-volume call for %s failed: %v", pickID, err)
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.recomputePickVolume(ctx, pickID); err != nil {
		logger.Warnf("refresh pick volume %s: %v", pickID, err)
	}
}

func (s *Server) refreshUserVolume(userID string) {
	if s.refresh != nil {
		_, err := s.refresh.R().
			SetBody(map[string]string{"userId": userID}).
			Post("/functions/update-user-volume")
		if err != nil {
			logger.Warnf("update-user-volume call for %s failed: %v", userID, err)
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.recomputeUserVolume(ctx, userID); err != nil {
		logger.Warnf("refresh user volume %s: %v", userID, err)
	}
}

func (s *Server) recomputePickVolume(ctx context.Context, pickID string) error {
	total, err := s.store.sumTradeVolumeByPick(ctx, pickID)
	if err != nil {
		return err
	}
	return s.store.setPickVolume(ctx, pickID, total.String())
}

func (s *Server) recomputeUserVolume(ctx context.Context, userID string) error {
	total, err := s.store.sumTradeVolumeByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.store.setUserVolume(ctx, userID, total.String())
}

func (s *Server) handleUpdatePickVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PickID string `json:"pickId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.PickID) == "" {
		writeError(w, 400, "pickId is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := s.recomputePickVolume(ctx, req.PickID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"success": true})
}

func (s *Server) handleUpdateUserVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		writeError(w, 400, "userId is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := s.recomputeUserVolume(ctx, req.UserID); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"success": true})
}
