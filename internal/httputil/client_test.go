package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	tests := []struct {
		name  string
		agent string
		want  string
	}{
		{"default", "", UserAgent},
		{"caller set", "custom/2", "custom/2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			resp, err := NewClient().Do(req)
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			resp.Body.Close()
			if got != tt.want {
				t.Errorf("User-Agent = %q, want %q", got, tt.want)
			}
		})
	}
}
