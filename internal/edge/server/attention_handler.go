package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type attentionRequest struct {
	PickID  string `json:"pickId"`
	TweetID string `json:"tweetId"`
	UserID  string `json:"userId"`
	Wallet  string `json:"wallet"`
}

// handleClaimAttentionEligibility checks whether the requesting user replied
// to the pick's linked poll and what they voted. Degrades to "not eligible"
// with an explanatory message instead of failing when the user cannot be
// tied to an X handle.
func (s *Server) handleClaimAttentionEligibility(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeError(w, 503, "attention rewards are not configured")
		return
	}

	var req attentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid json body")
		return
	}
	if strings.TrimSpace(req.PickID) == "" {
		writeError(w, 400, "pickId is required")
		return
	}
	if req.UserID == "" && req.Wallet == "" {
		writeError(w, 400, "userId or wallet is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	meta, err := s.store.getPickMeta(ctx, req.PickID)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if meta == nil {
		writeError(w, 404, "pick not found")
		return
	}

	tweetID := strings.TrimSpace(req.TweetID)
	if tweetID == "" && meta.TweetID != nil {
		tweetID = strings.TrimSpace(*meta.TweetID)
	}
	if tweetID == "" {
		writeError(w, 400, "pick has no linked poll tweet")
		return
	}

	handle, err := s.resolveHandle(ctx, req)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if handle == "" {
		writeJSON(w, 200, map[string]any{
			"success":  true,
			"eligible": false,
			"choice":   nil,
			"message":  "user has no linked X handle",
		})
		return
	}

	verdict, err := s.checker.Check(ctx, tweetID, handle, "")
	if err != nil {
		writeError(w, 502, err.Error())
		return
	}

	body := map[string]any{
		"success":  true,
		"eligible": verdict.Eligible,
		"choice":   nil,
		"message":  verdict.Message,
	}
	if verdict.Choice != "" {
		body["choice"] = verdict.Choice
	}
	if verdict.Reply != "" {
		body["reply"] = verdict.Reply
	}
	writeJSON(w, 200, body)
}

func (s *Server) resolveHandle(ctx context.Context, req attentionRequest) (string, error) {
	if req.UserID != "" {
		return s.store.userHandleByID(ctx, req.UserID)
	}
	_, handle, err := s.store.userIDAndHandleByWallet(ctx, req.Wallet)
	return handle, err
}
