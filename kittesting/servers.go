package kittesting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/open-rails/coursekit/downloads"
)

const tokenTTL = time.Hour

// nowFunc exists so token timestamps are easy to spot in failures.
var nowFunc = time.Now

// NewGatewayServer runs a mock secure-download gateway. decisions maps
// download id to the canned response; unknown ids are denied.
func NewGatewayServer(decisions map[string]downloads.Decision) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/downloads/secure", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TenantID   string `json:"tenantId"`
			DownloadID string `json:"downloadId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d, ok := decisions[req.DownloadID]
		if !ok {
			d = downloads.Decision{Allowed: false, Reason: "unknown_download"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d)
	})
	return httptest.NewServer(mux)
}

// NewBillingServer runs a mock billing API serving canned subscription
// payloads keyed by "<school>/<user>". The token endpoint accepts anything.
func NewBillingServer(payloads map[string]string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/schools/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for key, body := range payloads {
			parts := strings.SplitN(key, "/", 2)
			if len(parts) == 2 && r.URL.Path == "/schools/"+parts[0]+"/users/"+parts[1]+"/subscriptions" {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		_, _ = w.Write([]byte(`[]`))
	})
	return httptest.NewServer(mux)
}
