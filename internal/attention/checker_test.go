package attention

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func testChecker(t *testing.T, handler http.HandlerFunc, maxPages int) (*Checker, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := &Checker{
		http:     resty.New().SetTimeout(2 * time.Second),
		endpoint: srv.URL,
		maxPages: maxPages,
	}
	return c, srv
}

func searchPage(replies []tweet, nextToken string) searchResponse {
	var out searchResponse
	out.Data = replies
	out.Meta.NextToken = nextToken
	return out
}

func TestCheck_ClassifiesNewestReply(t *testing.T) {
	var gotQuery string
	c, _ := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(searchPage([]tweet{
			{ID: "3", Text: "yes, definitely", AuthorID: "42"},
			{ID: "2", Text: "no way", AuthorID: "42"},
		}, ""))
	}, 3)

	v, err := c.Check(context.Background(), "1900000000000000000", "@alice", "Will it ship?")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if gotQuery != "conversation_id:1900000000000000000 from:alice" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if !v.Eligible || v.Choice != ChoiceYes {
		t.Fatalf("want eligible yes verdict, got %+v", v)
	}
	if v.Reply != "yes, definitely" {
		t.Fatalf("newest reply should win, got %q", v.Reply)
	}
}

func TestCheck_NoReplies(t *testing.T) {
	c, _ := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchPage(nil, ""))
	}, 3)

	v, err := c.Check(context.Background(), "100", "bob", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Eligible {
		t.Fatal("no replies must never be eligible")
	}
	if v.Message == "" {
		t.Fatal("expected an explanatory message")
	}
}

func TestCheck_UnclassifiableReply(t *testing.T) {
	c, _ := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchPage([]tweet{{ID: "1", Text: "hmm, maybe", AuthorID: "7"}}, ""))
	}, 3)

	v, err := c.Check(context.Background(), "100", "bob", "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.Eligible || v.Choice != ChoiceNone {
		t.Fatalf("ambiguous reply must be ineligible, got %+v", v)
	}
	if v.Reply != "hmm, maybe" {
		t.Fatalf("verdict should carry the reply text, got %q", v.Reply)
	}
}

func TestFindReplies_FollowsPagination(t *testing.T) {
	pages := 0
	c, _ := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		token := r.URL.Query().Get("next_token")
		switch token {
		case "":
			json.NewEncoder(w).Encode(searchPage([]tweet{{ID: "1", Text: "a"}}, "t1"))
		case "t1":
			json.NewEncoder(w).Encode(searchPage([]tweet{{ID: "2", Text: "b"}}, ""))
		default:
			t.Errorf("unexpected next_token %q", token)
		}
	}, 5)

	replies, err := c.findReplies(context.Background(), "100", "alice")
	if err != nil {
		t.Fatalf("findReplies: %v", err)
	}
	if pages != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", pages)
	}
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}
}

func TestFindReplies_StopsAtPageCeiling(t *testing.T) {
	pages := 0
	c, _ := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Always advertise another page.
		json.NewEncoder(w).Encode(searchPage([]tweet{{ID: fmt.Sprint(pages), Text: "x"}}, fmt.Sprintf("t%d", pages)))
	}, 3)

	replies, err := c.findReplies(context.Background(), "100", "alice")
	if err != nil {
		t.Fatalf("findReplies: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pagination must stop at the ceiling, fetched %d pages", pages)
	}
	if len(replies) != 3 {
		t.Fatalf("expected 3 replies, got %d", len(replies))
	}
}

func TestFindReplies_SurfacesAPIError(t *testing.T) {
	c, _ := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}, 3)

	if _, err := c.findReplies(context.Background(), "100", "alice"); err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}

func TestCheck_RequiresTweetAndHandle(t *testing.T) {
	c := &Checker{http: resty.New(), maxPages: 1}
	if _, err := c.Check(context.Background(), "", "alice", ""); err == nil {
		t.Fatal("missing tweet id must error")
	}
	if _, err := c.Check(context.Background(), "100", "  @ ", ""); err == nil {
		t.Fatal("blank handle must error")
	}
}
