package main

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/stx/errors"
)

func newTestSession(t *testing.T, backend string) *session {
	t.Helper()
	cfg := defaultConfig()
	cfg.Backend = backend

	ctx := context.Background()
	sess, err := openSession(ctx, cfg)
	if err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	t.Cleanup(func() { sess.Close(ctx) })
	return sess
}

func TestSession_Scenario(t *testing.T) {
	for _, backend := range []string{backendHeap, backendWasm} {
		t.Run(backend, func(t *testing.T) {
			sess := newTestSession(t, backend)

			steps := []struct {
				line string
				out  string
				kind errors.Kind
			}{
				{"new s 4", "cap:4 len:0", ""},
				{"append s ab", "2", ""},
				{"append s cdefg", "-7", errors.KindCapacityExceeded},
				{"len s", "2", ""},
				{"show s", "cap:4 len:2 cookie:170 flags:1 data:'ab'", ""},
				{"grow s cdefg", "5", ""},
				{"len s", "7", ""},
				{"cap s", "14", ""},
				{"format s \"=%d\" 42", "3", ""},
				{"show s", "data:'abcdefg=42'", ""},
				{"resize s 300", "wide cap:300 len:10", ""},
				{"dup t s", "wide cap:10 len:10", ""},
				{"equal s t", "true", ""},
				{"resize t 3", "narrow cap:3 len:3 cookie:170 flags:1 data:'abc'", ""},
				{"equal s t", "false", ""},
				{"spc t", "0", ""},
				{"reset s", "cap:300 len:0", ""},
				{"check s", "true", ""},
				{"free t", "", ""},
				{"len t", "", errors.KindNotFound},
			}

			for _, step := range steps {
				out, err := sess.exec(step.line)
				if !strings.Contains(out, step.out) {
					t.Errorf("%q: output %q does not contain %q", step.line, out, step.out)
				}
				if step.kind == "" && err != nil {
					t.Errorf("%q: unexpected error: %v", step.line, err)
				}
				if step.kind != "" && errors.KindOf(err) != step.kind {
					t.Errorf("%q: kind = %s, want %s (err %v)", step.line, errors.KindOf(err), step.kind, err)
				}
			}
		})
	}
}

func TestSession_AppendN(t *testing.T) {
	sess := newTestSession(t, backendHeap)

	if _, err := sess.exec("new s 8"); err != nil {
		t.Fatal(err)
	}
	out, err := sess.exec(`appendn s 3 "hello world"`)
	if err != nil || out != "3" {
		t.Errorf("appendn = %q, %v", out, err)
	}
	if out, _ := sess.exec("show s"); !strings.Contains(out, "data:'hel'") {
		t.Errorf("show = %q", out)
	}
}

func TestSession_Rebind(t *testing.T) {
	sess := newTestSession(t, backendHeap)

	if _, err := sess.exec("from s first"); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.exec("from s second"); err != nil {
		t.Fatal(err)
	}
	if got := sess.heap.Stats().Blocks; got != 1 {
		t.Errorf("live blocks = %d, want 1 after rebinding a name", got)
	}
}

func TestSession_List(t *testing.T) {
	sess := newTestSession(t, backendHeap)

	for _, line := range []string{"from b two", "from a one"} {
		if _, err := sess.exec(line); err != nil {
			t.Fatal(err)
		}
	}
	out, err := sess.exec("list")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "a @") || !strings.HasPrefix(lines[1], "b @") {
		t.Errorf("list = %q", out)
	}
}

func TestSession_Errors(t *testing.T) {
	sess := newTestSession(t, backendHeap)

	tests := []struct {
		line string
		kind errors.Kind
	}{
		{"bogus", errors.KindNotFound},
		{"new s", errors.KindInvalidInput},
		{"new s -1", errors.KindInvalidInput},
		{"append missing x", errors.KindNotFound},
		{"format", errors.KindInvalidInput},
		{`from s "open`, errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := sess.exec(tt.line)
			if errors.KindOf(err) != tt.kind {
				t.Errorf("kind = %s, want %s (err %v)", errors.KindOf(err), tt.kind, err)
			}
		})
	}
}

func TestSession_Run(t *testing.T) {
	sess := newTestSession(t, backendHeap)

	script := `# build a greeting
from g "hi"

append g "!"
grow g " there"
show g
`
	var out strings.Builder
	if err := sess.run(strings.NewReader(script), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "-3\nerror: ") {
		t.Errorf("failed append not reported:\n%s", got)
	}
	if !strings.Contains(got, "data:'hi there'") {
		t.Errorf("final content missing:\n%s", got)
	}
}

func TestSession_Stats(t *testing.T) {
	sess := newTestSession(t, backendWasm)

	if _, err := sess.exec("from s abc"); err != nil {
		t.Fatal(err)
	}
	out, err := sess.exec("stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "backend:wasm") || !strings.Contains(out, "blocks:1") {
		t.Errorf("stats = %q", out)
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"  list  ", []string{"list"}},
		{"from s hello", []string{"from", "s", "hello"}},
		{`from s "hello world"`, []string{"from", "s", "hello world"}},
		{`append s "a\"b\tc"`, []string{"append", "s", "a\"b\tc"}},
		{`format s "%d-%d" 1 2`, []string{"format", "s", "%d-%d", "1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if err != nil {
				t.Fatalf("splitArgs failed: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("splitArgs = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitArgs_Unterminated(t *testing.T) {
	for _, line := range []string{`"abc`, `x "a\"`, `"\`} {
		if _, err := splitArgs(line); err == nil {
			t.Errorf("splitArgs(%q) accepted an unterminated quote", line)
		}
	}
}

func TestParseValue(t *testing.T) {
	if v, ok := parseValue("42").(int64); !ok || v != 42 {
		t.Errorf("parseValue(42) = %v", parseValue("42"))
	}
	if v, ok := parseValue("0x10").(int64); !ok || v != 16 {
		t.Errorf("parseValue(0x10) = %v", parseValue("0x10"))
	}
	if v, ok := parseValue("1.5").(float64); !ok || v != 1.5 {
		t.Errorf("parseValue(1.5) = %v", parseValue("1.5"))
	}
	if v, ok := parseValue("go").(string); !ok || v != "go" {
		t.Errorf("parseValue(go) = %v", parseValue("go"))
	}
}
