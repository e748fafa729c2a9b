// Package attention verifies that a user actually replied to a market's
// linked X poll and classifies the reply as a yes/no vote. Eligibility is
// never granted without a concretely identified reply.
package attention

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pickslab/picks-edge/pkg/config"
	"github.com/pickslab/picks-edge/pkg/logger"
	"github.com/pickslab/picks-edge/pkg/replycache"
)

const (
	searchEndpoint = "https://api.x.com/2/tweets/search/recent"
	cacheTTL       = 10 * time.Minute
)

// Verdict is the outcome of one eligibility check.
type Verdict struct {
	Eligible bool
	Choice   string // ChoiceYes, ChoiceNo or ChoiceNone
	Reply    string
	Message  string
}

type Checker struct {
	http       *resty.Client
	endpoint   string
	maxPages   int
	cache      *replycache.Store
	classifier *classifier
}

func New(cfg config.XConfig, cache *replycache.Store) *Checker {
	return &Checker{
		http: resty.New().
			SetTimeout(15 * time.Second).
			SetAuthToken(cfg.BearerToken).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
		endpoint:   searchEndpoint,
		maxPages:   cfg.MaxPages,
		cache:      cache,
		classifier: newClassifier(cfg),
	}
}

type tweet struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	AuthorID string `json:"author_id"`
}

type searchResponse struct {
	Data []tweet `json:"data"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// Check finds the user's replies within the poll tweet's conversation and
// classifies the most recent one. question is used only for the optional
// model classifier prompt.
func (c *Checker) Check(ctx context.Context, tweetID, handle, question string) (*Verdict, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if tweetID == "" || handle == "" {
		return nil, fmt.Errorf("tweet id and handle are required")
	}

	replies, err := c.findReplies(ctx, tweetID, handle)
	if err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return &Verdict{Message: fmt.Sprintf("no reply from @%s found in conversation %s", handle, tweetID)}, nil
	}

	// Most recent reply wins; the search API returns newest first.
	reply := replies[0]
	choice := ChoiceNone
	if c.classifier != nil {
		choice = c.classifier.Classify(ctx, question, reply.Text)
	} else {
		choice = HeuristicChoice(reply.Text)
	}

	if choice == ChoiceNone {
		return &Verdict{
			Reply:   reply.Text,
			Message: "reply found but the vote could not be classified",
		}, nil
	}
	return &Verdict{
		Eligible: true,
		Choice:   choice,
		Reply:    reply.Text,
		Message:  fmt.Sprintf("@%s voted %s", handle, choice),
	}, nil
}

// findReplies walks the recent-search API for the user's replies in the
// conversation, following next_token until exhausted or the page ceiling.
func (c *Checker) findReplies(ctx context.Context, tweetID, handle string) ([]tweet, error) {
	cacheKey := fmt.Sprintf("conv:%s:%s", tweetID, strings.ToLower(handle))
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(cacheKey); err == nil && ok {
			var cached []tweet
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	query := fmt.Sprintf("conversation_id:%s from:%s", tweetID, handle)
	var all []tweet
	nextToken := ""
	for page := 0; page < c.maxPages; page++ {
		var out searchResponse
		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("query", query).
			SetQueryParam("max_results", "100").
			SetQueryParam("tweet.fields", "author_id").
			SetResult(&out)
		if nextToken != "" {
			req.SetQueryParam("next_token", nextToken)
		}
		resp, err := req.Get(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("reply search: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("reply search: http %d: %s", resp.StatusCode(), resp.String())
		}
		all = append(all, out.Data...)
		nextToken = out.Meta.NextToken
		if nextToken == "" {
			break
		}
	}
	if nextToken != "" {
		logger.Warnf("reply search for conversation %s hit the %d-page ceiling", tweetID, c.maxPages)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(all); err == nil {
			if err := c.cache.Set(cacheKey, raw, cacheTTL); err != nil {
				logger.Warnf("reply cache write: %v", err)
			}
		}
	}
	return all, nil
}
