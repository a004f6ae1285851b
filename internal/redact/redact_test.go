package redact

import (
	"errors"
	"testing"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"method call", "/bot123:ABC-def/getMe", "/bot[REDACTED]/getMe"},
		{"file download", "/file/bot123:ABC/photos/a.jpg", "/file/bot[REDACTED]/photos/a.jpg"},
		{"query stops token", "/bot123:ABC?x=1", "/bot[REDACTED]?x=1"},
		{"no token", "/healthz", "/healthz"},
		{"host name untouched", "http://telegram-bot-api:8081/x", "http://telegram-bot-api:8081/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Path(tt.in); got != tt.want {
				t.Errorf("Path(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestError(t *testing.T) {
	err := errors.New(`Post "http://telegram-bot-api:8081/bot123:ABC/sendPhoto": connection refused`)
	want := `Post "http://telegram-bot-api:8081/bot[REDACTED]/sendPhoto": connection refused`
	if got := Error(err); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := Error(nil); got != "" {
		t.Errorf("Error(nil) = %q, want empty", got)
	}
}
