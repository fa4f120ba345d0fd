package worldapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/worldlens/dbopen"
)

const testWorldID = "wrld_12345678-abcd-ef01-2345-6789abcdef01"

func TestSearchWorld_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/worlds" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "Cozy Cafe" {
			t.Errorf("search param: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"` + testWorldID + `","name":"Cozy Cafe"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.SearchWorld(context.Background(), "Cozy Cafe")
	if err != nil {
		t.Fatalf("SearchWorld: %v", err)
	}
	if !res.Success || res.WorldID != testWorldID || res.WorldName != "Cozy Cafe" {
		t.Errorf("got %+v", res)
	}
}

func TestSearchWorld_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).SearchWorld(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("SearchWorld: %v", err)
	}
	if !res.NotFound || res.Success {
		t.Errorf("got %+v, want NotFound", res)
	}
}

func TestSearchWorld_NeedsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).SearchWorld(context.Background(), "x")
	if err != nil {
		t.Fatalf("SearchWorld: %v", err)
	}
	if !res.NeedsAuth {
		t.Errorf("got %+v, want NeedsAuth", res)
	}
}

func TestSearchWorld_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).SearchWorld(context.Background(), "x"); err == nil {
		t.Error("server error should surface as an error")
	}
}

func TestSearchWorld_CacheSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"id":"` + testWorldID + `","name":"Cozy Cafe"}]`))
	}))
	defer srv.Close()

	cache := NewCache(dbopen.OpenMemory(t, dbopen.WithSchema(CacheSchema)), 0)
	c := NewClient(srv.URL, WithCache(cache))

	for range 3 {
		res, err := c.SearchWorld(context.Background(), "Cozy Cafe")
		if err != nil {
			t.Fatalf("SearchWorld: %v", err)
		}
		if !res.Success || res.WorldID != testWorldID {
			t.Fatalf("got %+v", res)
		}
	}
	if calls != 1 {
		t.Errorf("network calls: got %d, want 1", calls)
	}
}

func TestCheckAuthentication(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") == "auth=token" {
			w.Write([]byte(`{"id":"usr_1","displayName":"sora"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	st, err := NewClient(srv.URL).CheckAuthentication(context.Background())
	if err != nil {
		t.Fatalf("CheckAuthentication: %v", err)
	}
	if st.Authenticated {
		t.Error("unauthenticated session reported as authenticated")
	}

	st, err = NewClient(srv.URL, WithAuthCookie("auth=token")).CheckAuthentication(context.Background())
	if err != nil {
		t.Fatalf("CheckAuthentication: %v", err)
	}
	if !st.Authenticated || st.User == nil || st.User.DisplayName != "sora" {
		t.Errorf("got %+v", st)
	}
}
