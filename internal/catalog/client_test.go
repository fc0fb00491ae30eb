package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

// newTestClient builds a client pointed at the test server with rate
// limiting disabled.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New("test-token",
		WithBaseURL(srv.URL),
		WithRateLimiter(rate.NewLimiter(rate.Inf, 0)),
	)
}

func TestListMachinesCombinesRostersAndFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/machine/paginated", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		fmt.Fprint(w, `{"data":[
			{"id":1,"name":"Zeta","os":"Linux","difficultyText":"Easy","active":true,"ip":"10.10.10.1"}
		],"links":{}}`)
	})
	mux.HandleFunc("/machine/list/retired/paginated", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"data":[
				{"id":3,"name":"Mimic","os":"Windows","difficultyText":"Hard","active":0}
			],"links":{}}`)
			return
		}
		fmt.Fprintf(w, `{"data":[
			{"id":2,"name":"Alpha","os":"Linux","difficultyText":"Medium","active":0}
		],"links":{"next":%q}}`, srv.URL+"/machine/list/retired/paginated?page=2")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	machines, err := newTestClient(t, srv).ListMachines(context.Background())
	if err != nil {
		t.Fatalf("ListMachines: %v", err)
	}

	want := []Machine{
		{ID: 1, Name: "Zeta", OS: "Linux", Difficulty: DifficultyEasy, Active: true, IP: "10.10.10.1"},
		{ID: 2, Name: "Alpha", OS: "Linux", Difficulty: DifficultyMedium},
		{ID: 3, Name: "Mimic", OS: "Windows", Difficulty: DifficultyHard},
	}
	if diff := cmp.Diff(want, machines); diff != "" {
		t.Errorf("machines mismatch (-want +got):\n%s", diff)
	}
}

func TestListMachinesEnrichesActiveIP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/machine/paginated", func(w http.ResponseWriter, r *http.Request) {
		// Active flag encoded as a number and no IP in the listing.
		fmt.Fprint(w, `{"data":[{"id":7,"name":"Keeper","os":"Linux","difficultyText":"Easy","active":1}],"links":{}}`)
	})
	mux.HandleFunc("/machine/list/retired/paginated", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"links":{}}`)
	})
	mux.HandleFunc("/machine/profile/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"info":{"id":7,"name":"Keeper","ip":"10.10.11.227"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	machines, err := newTestClient(t, srv).ListMachines(context.Background())
	if err != nil {
		t.Fatalf("ListMachines: %v", err)
	}
	if len(machines) != 1 {
		t.Fatalf("got %d machines, want 1", len(machines))
	}
	if !machines[0].Active {
		t.Error("machine should be active (numeric active encoding)")
	}
	if machines[0].IP != "10.10.11.227" {
		t.Errorf("IP = %q, want enriched profile address", machines[0].IP)
	}
}

func TestListMachinesMalformedPayloadIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).ListMachines(context.Background())
	if !IsKind(err, KindProtocol) {
		t.Errorf("err = %v, want protocol kind", err)
	}
}

func TestListMachinesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on

	_, err := newTestClient(t, srv).ListMachines(context.Background())
	if !IsKind(err, KindTransport) {
		t.Errorf("err = %v, want transport kind", err)
	}
}

func TestSpawnStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"forbidden", http.StatusForbidden, `{"message":"VIP subscription required"}`, KindForbidden},
		{"conflict", http.StatusConflict, `{"message":"another machine is active"}`, KindConflict},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad token"}`, KindUnauthorized},
		{"protocol", http.StatusTeapot, `{}`, KindProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Spawn(context.Background(), 42)
			if !IsKind(err, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestSpawnReturnsActiveInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		fmt.Fprint(w, `{"message":"Machine deployed","ip":"10.10.11.5"}`)
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv).Spawn(context.Background(), 42)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if info.ID != 42 || info.IP != "10.10.11.5" {
		t.Errorf("info = %+v, want id 42 with spawn-response IP", info)
	}
}

func TestSubmitFlagOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		outcome FlagOutcome
		ownType string
	}{
		{"accepted user", http.StatusOK, `{"message":"user own confirmed","own_type":"user"}`, FlagAccepted, "user"},
		{"accepted root", http.StatusOK, `{"message":"root own confirmed","own_type":"root"}`, FlagAccepted, "root"},
		{"incorrect", http.StatusBadRequest, `{"message":"Incorrect flag!"}`, FlagIncorrect, ""},
		{"already owned", http.StatusBadRequest, `{"message":"machine already owned"}`, FlagAlreadyOwned, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			res, err := newTestClient(t, srv).SubmitFlag(context.Background(), 42, "deadbeef")
			if err != nil {
				t.Fatalf("SubmitFlag: %v", err)
			}
			if res.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", res.Outcome, tt.outcome)
			}
			if res.OwnType != tt.ownType {
				t.Errorf("own type = %q, want %q", res.OwnType, tt.ownType)
			}
		})
	}
}

func TestSubmitFlagRejectsBlankWithoutRequest(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	for _, flag := range []string{"", "   ", "\t\n"} {
		if _, err := newTestClient(t, srv).SubmitFlag(context.Background(), 42, flag); err == nil {
			t.Errorf("SubmitFlag(%q) succeeded, want error", flag)
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestParseDifficultyOrdering(t *testing.T) {
	if !(DifficultyEasy < DifficultyMedium && DifficultyMedium < DifficultyHard && DifficultyHard < DifficultyInsane) {
		t.Fatal("difficulty constants must be ordered Easy < Medium < Hard < Insane")
	}
	if got := ParseDifficulty(" MEDIUM "); got != DifficultyMedium {
		t.Errorf("ParseDifficulty = %v, want Medium", got)
	}
	if got := ParseDifficulty("fiendish"); got != DifficultyUnknown {
		t.Errorf("ParseDifficulty unknown label = %v, want Unknown", got)
	}
}
