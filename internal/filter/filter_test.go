package filter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/nao1215/webcrawler/internal/model"
)

func newResponse(status int, headers map[string]string, body string) *model.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return model.NewResponse("http://example.com/x", status, h, []byte(body))
}

func TestSpecActive(t *testing.T) {
	t.Parallel()

	re, err := ParseSpec(nil, nil, nil, "x")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		spec Spec
		want Kind
	}{
		{name: "empty", spec: Spec{}, want: KindNone},
		{name: "status wins over all", spec: Spec{Status: []string{"404"}, Lengths: []string{"0"}, Servers: []string{"a"}, Regex: re.Regex}, want: KindStatus},
		{name: "length wins over server", spec: Spec{Lengths: []string{"0"}, Servers: []string{"a"}}, want: KindLength},
		{name: "server wins over regex", spec: Spec{Servers: []string{"a"}, Regex: re.Regex}, want: KindServer},
		{name: "regex only", spec: re, want: KindRegex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.spec.Active(); got != tt.want {
				t.Errorf("Active() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestSpecHide(t *testing.T) {
	t.Parallel()

	t.Run("empty spec shows everything", func(t *testing.T) {
		t.Parallel()

		for _, status := range []int{200, 301, 404, 500} {
			if (Spec{}).Hide(newResponse(status, nil, "")) {
				t.Errorf("status %d hidden by empty spec", status)
			}
		}
	})

	t.Run("status filter hides listed codes", func(t *testing.T) {
		t.Parallel()

		spec := Spec{Status: []string{"200", "301"}}
		tests := []struct {
			status int
			hidden bool
		}{
			{200, true},
			{301, true},
			{404, false},
			{500, false},
		}
		for _, tt := range tests {
			if got := spec.Hide(newResponse(tt.status, nil, "")); got != tt.hidden {
				t.Errorf("Hide(%d) = %v, expected %v", tt.status, got, tt.hidden)
			}
		}
	})

	t.Run("status filter ignores lower priority filters", func(t *testing.T) {
		t.Parallel()

		spec := Spec{Status: []string{"404"}, Servers: []string{"nginx"}}
		if spec.Hide(newResponse(200, map[string]string{"Server": "nginx"}, "")) {
			t.Error("server filter must not apply when status filter is set")
		}
	})

	t.Run("length filter matches unknown sentinel", func(t *testing.T) {
		t.Parallel()

		spec := Spec{Lengths: []string{model.Unknown}}
		if !spec.Hide(newResponse(200, nil, "")) {
			t.Error("expected response without Content-Length to be hidden")
		}
		if spec.Hide(newResponse(200, map[string]string{"Content-Length": "12"}, "")) {
			t.Error("expected response with Content-Length to be shown")
		}
	})

	t.Run("server filter", func(t *testing.T) {
		t.Parallel()

		spec := Spec{Servers: []string{"Apache"}}
		if !spec.Hide(newResponse(200, map[string]string{"Server": "Apache"}, "")) {
			t.Error("expected Apache to be hidden")
		}
		if spec.Hide(newResponse(200, map[string]string{"Server": "nginx"}, "")) {
			t.Error("expected nginx to be shown")
		}
	})

	t.Run("regex matches header value", func(t *testing.T) {
		t.Parallel()

		spec, err := ParseSpec(nil, nil, nil, "^text/html")
		if err != nil {
			t.Fatal(err)
		}
		if !spec.Hide(newResponse(200, map[string]string{"Content-Type": "text/html; charset=utf-8"}, "")) {
			t.Error("expected header match to hide response")
		}
	})

	t.Run("regex matches body", func(t *testing.T) {
		t.Parallel()

		spec, err := ParseSpec(nil, nil, nil, "Not Found")
		if err != nil {
			t.Fatal(err)
		}
		if !spec.Hide(newResponse(200, nil, "<h1>Not Found</h1>")) {
			t.Error("expected body match to hide response")
		}
		if spec.Hide(newResponse(200, nil, "<h1>Welcome</h1>")) {
			t.Error("expected non-matching body to be shown")
		}
	})

	t.Run("regex matches decoded body", func(t *testing.T) {
		t.Parallel()

		spec, err := ParseSpec(nil, nil, nil, "café")
		if err != nil {
			t.Fatal(err)
		}
		// "café" in ISO-8859-1.
		body := string([]byte{'c', 'a', 'f', 0xE9})
		resp := newResponse(200, map[string]string{"Content-Type": "text/plain; charset=iso-8859-1"}, body)
		if !spec.Hide(resp) {
			t.Error("expected latin-1 body to be decoded before matching")
		}
	})
}

func TestParseSpec(t *testing.T) {
	t.Parallel()

	if _, err := ParseSpec(nil, nil, nil, "("); !errors.Is(err, ErrInvalidRegex) {
		t.Errorf("expected ErrInvalidRegex, got %v", err)
	}

	spec, err := ParseSpec([]string{"404"}, nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Regex != nil {
		t.Error("expected nil regex for empty pattern")
	}
}
