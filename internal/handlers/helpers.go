package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/decksmithhq/decksmith/internal/deck"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// redirectError sends the browser back to a page with an error banner.
func redirectError(w http.ResponseWriter, r *http.Request, page, message string) {
	http.Redirect(w, r, page+"?error="+url.QueryEscape(message), http.StatusFound)
}

// firstIssue reduces a multi-field validation error to the first
// field's message so the banner stays one line.
func firstIssue(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "; "); i > 0 {
		msg = msg[:i]
	}
	return msg
}

// csrfToken reads the CSRF cookie for embedding in forms.
func csrfToken(r *http.Request) string {
	if c, err := r.Cookie("_csrf"); err == nil {
		return c.Value
	}
	return ""
}

// sessionDeck resolves the request's deck via fn. Answers 500 when the
// handler was wired without a resolver.
func sessionDeck(w http.ResponseWriter, fn func(*http.Request) *deck.Deck, r *http.Request) *deck.Deck {
	if fn == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil
	}
	return fn(r)
}
