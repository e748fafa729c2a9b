package attention

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pickslab/picks-edge/pkg/config"
	"github.com/pickslab/picks-edge/pkg/logger"
)

// Choice is the classified stance of one reply.
const (
	ChoiceYes  = "yes"
	ChoiceNo   = "no"
	ChoiceNone = ""
)

var (
	yesWords = []string{"yes", "yeah", "yep", "yup", "agree", "agreed", "definitely", "for sure", "bullish", "true", "will happen", "100%"}
	noWords  = []string{"no", "nope", "nah", "disagree", "never", "bearish", "false", "won't happen", "wont happen", "not a chance", "doubt"}

	wordSplit = regexp.MustCompile(`[^a-z0-9%']+`)
)

// HeuristicChoice classifies reply text by keyword match. Returns ChoiceNone
// when neither side matches decisively.
func HeuristicChoice(text string) string {
	lower := strings.ToLower(text)
	tokens := map[string]bool{}
	for _, tok := range wordSplit.Split(lower, -1) {
		if tok != "" {
			tokens[tok] = true
		}
	}

	score := 0
	for _, w := range yesWords {
		if matchPhrase(lower, tokens, w) {
			score++
		}
	}
	for _, w := range noWords {
		if matchPhrase(lower, tokens, w) {
			score--
		}
	}

	switch {
	case score > 0:
		return ChoiceYes
	case score < 0:
		return ChoiceNo
	default:
		return ChoiceNone
	}
}

func matchPhrase(lower string, tokens map[string]bool, phrase string) bool {
	if strings.Contains(phrase, " ") {
		return strings.Contains(lower, phrase)
	}
	return tokens[phrase]
}

// classifier upgrades classification through an OpenAI-compatible chat
// endpoint when configured, degrading to the heuristic on any failure.
type classifier struct {
	http  *resty.Client
	model string
}

func newClassifier(cfg config.XConfig) *classifier {
	if strings.TrimSpace(cfg.ClassifierURL) == "" {
		return nil
	}
	hc := resty.New().
		SetBaseURL(cfg.ClassifierURL).
		SetTimeout(30 * time.Second)
	if cfg.ClassifierKey != "" {
		hc.SetAuthToken(cfg.ClassifierKey)
	}
	return &classifier{http: hc, model: cfg.ClassifierName}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify returns the model's yes/no verdict, falling back to the keyword
// heuristic when the model is unavailable or answers ambiguously.
func (c *classifier) Classify(ctx context.Context, question, reply string) string {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: "You classify poll replies. Answer with exactly one word: yes, no, or unclear."},
				{Role: "user", Content: fmt.Sprintf("Poll: %s\nReply: %s", question, reply)},
			},
		}).
		SetResult(&out).
		Post("/v1/chat/completions")
	if err != nil || resp.IsError() || len(out.Choices) == 0 {
		logger.Warnf("classifier unavailable, using heuristic: err=%v", err)
		return HeuristicChoice(reply)
	}

	switch strings.ToLower(strings.TrimSpace(out.Choices[0].Message.Content)) {
	case "yes":
		return ChoiceYes
	case "no":
		return ChoiceNo
	default:
		return HeuristicChoice(reply)
	}
}
