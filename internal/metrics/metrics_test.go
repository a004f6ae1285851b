package metrics

import (
	"testing"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Should include at least Go runtime and process collectors.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	// Vector metrics only appear once a label set has been observed.
	m.RequestsTotal.WithLabelValues("GET", "200", "/file").Inc()
	m.FileDeliveries.WithLabelValues(OutcomeComplete).Inc()
	m.FileDeletions.WithLabelValues(DeletionDeleted).Inc()
	m.BytesStreamed.WithLabelValues("file").Add(1000)

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"bot_api_relay_http_requests_total":     false,
		"bot_api_relay_file_deliveries_total":   false,
		"bot_api_relay_file_deletions_total":    false,
		"bot_api_relay_bytes_streamed_total":    false,
		"bot_api_relay_http_requests_in_flight": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected %s in gathered metrics", name)
		}
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"PUT", "PUT"},
		{"DELETE", "DELETE"},
		{"PATCH", "PATCH"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := NormalizeMethod(tt.method)
			if got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/file/bot123/photos/a.jpg", "/file"},
		{"/file", "/file"},
		{"/bot123:ABC/getMe", "/bot"},
		{"/bot123:ABC/sendDocument", "/bot"},
		{"/healthz", "/healthz"},
		{"/relay/status", "/relay/status"},
		{"/metrics", "/metrics"},
		{"/filez", "other"},
		{"/unknown", "other"},
		{"/", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := NormalizePath(tt.path)
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
