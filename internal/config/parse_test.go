package config

import (
	"errors"
	"testing"
)

func TestParseKeyValues(t *testing.T) {
	t.Parallel()

	t.Run("parses multiple pairs", func(t *testing.T) {
		t.Parallel()

		got, err := ParseKeyValues("headers", "X-Api=abc&Accept=text/html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 pairs, got %d", len(got))
		}
		if got["X-Api"] != "abc" || got["Accept"] != "text/html" {
			t.Errorf("unexpected result: %v", got)
		}
	})

	t.Run("value may contain equals sign", func(t *testing.T) {
		t.Parallel()

		got, err := ParseKeyValues("cookies", "session=YWJj==")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["session"] != "YWJj==" {
			t.Errorf("session = %q, expected %q", got["session"], "YWJj==")
		}
	})

	t.Run("empty input yields empty map", func(t *testing.T) {
		t.Parallel()

		got, err := ParseKeyValues("headers", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})

	tests := []struct {
		name    string
		input   string
		token   string
		wantErr error
	}{
		{name: "missing separator", input: "a=1&broken", token: "broken", wantErr: ErrMissingSeparator},
		{name: "empty key", input: "=value", token: "=value", wantErr: ErrEmptyKey},
		{name: "trailing ampersand", input: "a=1&", token: "", wantErr: ErrMissingSeparator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseKeyValues("headers", tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Token != tt.token {
				t.Errorf("Token = %q, expected %q", pe.Token, tt.token)
			}
			if pe.Field != "headers" {
				t.Errorf("Field = %q, expected %q", pe.Field, "headers")
			}
		})
	}
}

func TestParseProxies(t *testing.T) {
	t.Parallel()

	t.Run("parses scheme mapping", func(t *testing.T) {
		t.Parallel()

		got, err := ParseProxies("http;http://proxy1:8080,https;socks5://proxy2:1080")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["http"] != "http://proxy1:8080" {
			t.Errorf("http = %q", got["http"])
		}
		if got["https"] != "socks5://proxy2:1080" {
			t.Errorf("https = %q", got["https"])
		}
	})

	tests := []struct {
		name    string
		input   string
		token   string
		wantErr error
	}{
		{name: "missing semicolon", input: "http://proxy:8080", token: "http://proxy:8080", wantErr: ErrMissingSeparator},
		{name: "empty scheme", input: ";http://proxy:8080", token: ";http://proxy:8080", wantErr: ErrEmptyKey},
		{name: "empty url", input: "http;", token: "http;", wantErr: ErrEmptyValue},
		{name: "unsupported scheme", input: "ftp;http://proxy:8080", token: "ftp;http://proxy:8080", wantErr: ErrUnsupportedScheme},
		{name: "url without host", input: "http;proxy", token: "http;proxy", wantErr: ErrInvalidProxyURL},
		{name: "bad second token", input: "http;http://a:1,https", token: "https", wantErr: ErrMissingSeparator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseProxies(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Token != tt.token {
				t.Errorf("Token = %q, expected %q", pe.Token, tt.token)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	t.Run("trims items", func(t *testing.T) {
		t.Parallel()

		got, err := ParseList("exclude-url", "google.com, youtube.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0] != "google.com" || got[1] != "youtube.com" {
			t.Errorf("unexpected result: %v", got)
		}
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		t.Parallel()

		got, err := ParseList("exclude-url", "  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("empty item is an error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseList("exclude-url", "a.com,,b.com")
		if !errors.Is(err, ErrEmptyListItem) {
			t.Fatalf("expected ErrEmptyListItem, got %v", err)
		}
	})
}

func TestParseExtensions(t *testing.T) {
	t.Parallel()

	got, err := ParseExtensions("php,.txt, .bak")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"php", "txt", "bak"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, expected %q", i, got[i], want[i])
		}
	}

	if _, err := ParseExtensions("php,."); !errors.Is(err, ErrEmptyListItem) {
		t.Errorf("expected ErrEmptyListItem for bare dot, got %v", err)
	}
}

func TestNormalizeTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "adds trailing slash", input: "http://localhost", want: "http://localhost/"},
		{name: "keeps trailing slash", input: "https://example.com/app/", want: "https://example.com/app/"},
		{name: "adds slash to path", input: "https://example.com/app", want: "https://example.com/app/"},
		{name: "trims spaces", input: "  http://localhost:8080 ", want: "http://localhost:8080/"},
		{name: "empty", input: "", wantErr: ErrNoTarget},
		{name: "no scheme", input: "example.com", wantErr: ErrInvalidURL},
		{name: "ftp scheme", input: "ftp://example.com", wantErr: ErrInvalidURL},
		{name: "missing host", input: "http://", wantErr: ErrInvalidURL},
		{name: "query", input: "http://example.com/?a=1", wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeTarget(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeTarget(%q) = %q, expected %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHostExcluded(t *testing.T) {
	t.Parallel()

	excluded := []string{"google.com", "YouTube.com"}
	tests := []struct {
		host string
		want bool
	}{
		{host: "google.com", want: true},
		{host: "www.google.com", want: true},
		{host: "youtube.com", want: true},
		{host: "notgoogle.com", want: false},
		{host: "example.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()

			if got := HostExcluded(tt.host, excluded); got != tt.want {
				t.Errorf("HostExcluded(%q) = %v, expected %v", tt.host, got, tt.want)
			}
		})
	}
}
