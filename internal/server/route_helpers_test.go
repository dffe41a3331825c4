package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouteByMethod_MatchingMethod(t *testing.T) {
	called := false
	routes := MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		},
	}

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	RouteByMethod(w, req, routes)

	if !called {
		t.Error("expected GET handler to be called")
	}
}

func TestRouteByMethod_NoMatchingMethod(t *testing.T) {
	routes := MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) {
			t.Error("GET handler should not be called")
		},
	}

	req := httptest.NewRequest("POST", "/test", nil)
	w := httptest.NewRecorder()

	RouteByMethod(w, req, routes)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestRouteByMethod_DispatchesPerMethod(t *testing.T) {
	var got string
	routes := MethodRouter{
		"GET":  func(w http.ResponseWriter, r *http.Request) { got = "GET" },
		"POST": func(w http.ResponseWriter, r *http.Request) { got = "POST" },
	}

	req := httptest.NewRequest("POST", "/config", nil)
	w := httptest.NewRecorder()

	RouteByMethod(w, req, routes)

	if got != "POST" {
		t.Errorf("expected POST handler, got %q", got)
	}
}
