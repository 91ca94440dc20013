package report

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/webcrawler/internal/model"
)

func TestFormatHit(t *testing.T) {
	t.Parallel()

	line := FormatHit(model.Hit{
		Payload:       "http://example.com/admin",
		StatusCode:    200,
		ContentLength: model.Unknown,
		Server:        "nginx",
	})

	if !strings.HasPrefix(line, "http://example.com/admin ") {
		t.Errorf("unexpected prefix: %q", line)
	}
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[1] != "200" || fields[2] != "UNK" || fields[3] != "nginx" {
		t.Errorf("unexpected fields: %q", fields)
	}
	if idx := strings.Index(line, "200"); idx != payloadWidth+2 {
		t.Errorf("status column at %d, expected %d", idx, payloadWidth+2)
	}

	long := FormatHit(model.Hit{Payload: "http://example.com/" + strings.Repeat("a", 200), StatusCode: 404, ContentLength: "1", Server: "x"})
	if idx := strings.Index(long, "..."); idx != payloadWidth-3 {
		t.Errorf("expected payload truncated to %d columns: %q", payloadWidth, long)
	}
}

func TestFormatDiscovery(t *testing.T) {
	t.Parallel()

	line := FormatDiscovery(model.Discovery{URL: "http://example.com/a", FoundOn: "http://example.com/"})
	if !strings.HasPrefix(line, "[!] http://example.com/a ") {
		t.Errorf("unexpected line: %q", line)
	}
	if !strings.HasSuffix(line, " -> http://example.com/") {
		t.Errorf("unexpected line: %q", line)
	}
}

func TestSink(t *testing.T) {
	t.Parallel()

	t.Run("mirror is uncolored", func(t *testing.T) {
		t.Parallel()

		var out, mirror bytes.Buffer
		s := NewSink(&out, WithMirror(&mirror), WithColor(true))
		hit := model.Hit{Payload: "http://example.com/a", StatusCode: 500, ContentLength: "1", Server: "x"}
		s.Hit(hit)

		if !strings.Contains(out.String(), "\x1b[") {
			t.Errorf("expected colored terminal output: %q", out.String())
		}
		if mirror.String() != FormatHit(hit)+"\n" {
			t.Errorf("mirror = %q, expected %q", mirror.String(), FormatHit(hit)+"\n")
		}
	})

	t.Run("color disabled", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		s := NewSink(&out, WithColor(false))
		s.Discovery(model.Discovery{URL: "http://example.com/a", FoundOn: "http://example.com/"})
		s.Println("plain")

		if strings.Contains(out.String(), "\x1b[") {
			t.Errorf("expected no escape codes: %q", out.String())
		}
		if !strings.HasSuffix(out.String(), "plain\n") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})

	t.Run("concurrent writers keep lines whole", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		s := NewSink(&out, WithColor(false))

		const workers, perWorker = 8, 50
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perWorker {
					s.Hit(model.Hit{Payload: fmt.Sprintf("w%d-%d", w, i), StatusCode: 200, ContentLength: "1", Server: "x"})
				}
			}()
		}
		wg.Wait()

		lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		if len(lines) != workers*perWorker {
			t.Fatalf("expected %d lines, got %d", workers*perWorker, len(lines))
		}
		for _, line := range lines {
			if len(strings.Fields(line)) != 4 {
				t.Fatalf("interleaved line: %q", line)
			}
		}
	})
}

func TestConfigTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := ConfigTable(&buf, []Setting{
		{Name: "Target", Value: "http://example.com/"},
		{Name: "Threads", Value: "10"},
		{Name: "Proxy", Value: ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "http://example.com/") || !strings.Contains(output, "10") {
		t.Errorf("expected values in table\n%s", output)
	}
	if strings.Contains(output, "Proxy") {
		t.Errorf("empty settings should be skipped\n%s", output)
	}
}
