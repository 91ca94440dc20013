package wordlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// drain collects every word a Source emits.
func drain(t *testing.T, s *Source) []string {
	t.Helper()

	var words []string
	for {
		word, ok := s.Next()
		if !ok {
			break
		}
		words = append(words, word)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	return words
}

func writeWordlist(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func equalWords(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d words %q, expected %d words %q", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word[%d] = %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestSourceNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opts  []Option
		want  []string
	}{
		{
			name:  "plain words",
			input: "admin\nlogin\n",
			want:  []string{"admin", "login"},
		},
		{
			name:  "extensions with blank line",
			input: "admin\n\nlogin\n",
			opts:  []Option{WithExtensions([]string{"php"})},
			want:  []string{"admin", "admin.php", "", "login", "login.php"},
		},
		{
			name:  "extensions keep order",
			input: "index",
			opts:  []Option{WithExtensions([]string{"php", "bak", "txt"})},
			want:  []string{"index", "index.php", "index.bak", "index.txt"},
		},
		{
			name:  "trailing slash after expansion",
			input: "admin\n\n",
			opts:  []Option{WithExtensions([]string{"old"}), WithTrailingSlash(true)},
			want:  []string{"admin/", "admin.old/", ""},
		},
		{
			name:  "crlf line endings",
			input: "admin\r\nlogin\r\n",
			want:  []string{"admin", "login"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(strings.NewReader(tt.input), tt.opts...)
			equalWords(t, drain(t, s), tt.want)

			if _, ok := s.Next(); ok {
				t.Error("expected exhausted source to stay exhausted")
			}
			if s.Total() != UnknownTotal {
				t.Errorf("Total() = %d, expected UnknownTotal", s.Total())
			}
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("total equals L times one plus E", func(t *testing.T) {
		t.Parallel()

		path := writeWordlist(t, []byte("a\nb\nc\nd\n"))
		exts := []string{"php", "txt"}

		s, err := Open(path, WithExtensions(exts))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if s.Total() != 4*3 {
			t.Errorf("Total() = %d, expected %d", s.Total(), 12)
		}
		words := drain(t, s)
		if int64(len(words)) != s.Total() {
			t.Errorf("emitted %d words, Total() = %d", len(words), s.Total())
		}
	})

	t.Run("total counts blank lines once", func(t *testing.T) {
		t.Parallel()

		path := writeWordlist(t, []byte("admin\n\nlogin\n"))
		s, err := Open(path, WithExtensions([]string{"php"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		if s.Total() != 5 {
			t.Errorf("Total() = %d, expected 5", s.Total())
		}
		equalWords(t, drain(t, s), []string{"admin", "admin.php", "", "login", "login.php"})
	})

	t.Run("utf-16 with bom", func(t *testing.T) {
		t.Parallel()

		// "ab\ncd\n" encoded as UTF-16LE with BOM.
		content := []byte{0xFF, 0xFE, 'a', 0, 'b', 0, '\n', 0, 'c', 0, 'd', 0, '\n', 0}
		s, err := Open(writeWordlist(t, content))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		equalWords(t, drain(t, s), []string{"ab", "cd"})
	})

	t.Run("utf-8 bom is stripped", func(t *testing.T) {
		t.Parallel()

		s, err := Open(writeWordlist(t, []byte("\xEF\xBB\xBFadmin\n")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()

		equalWords(t, drain(t, s), []string{"admin"})
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		_, err := Open(writeWordlist(t, nil))
		if !errors.Is(err, ErrEmptyWordlist) {
			t.Errorf("expected ErrEmptyWordlist, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestCount(t *testing.T) {
	t.Parallel()

	got, err := Count(strings.NewReader("a\n\nb\nc\n"), WithExtensions([]string{"x", "y"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10 {
		t.Errorf("Count() = %d, expected 10", got)
	}
}
