package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/stx"
	"github.com/wippyai/stx/alloc"
	"github.com/wippyai/stx/engine"
	"github.com/wippyai/stx/errors"
	"github.com/wippyai/stx/memory"
)

const helpText = `commands:
  new NAME CAP             empty string with capacity CAP
  from NAME TEXT           string holding TEXT
  dup DST SRC              compact copy of SRC
  free NAME                release NAME
  reset NAME               empty NAME, keep capacity
  append NAME TEXT         append without growing
  appendn NAME N TEXT      append at most N bytes without growing
  grow NAME TEXT           append, growing when needed
  format NAME FMT [ARGS]   formatted append without growing
  resize NAME CAP          change capacity
  equal A B                compare contents
  len|cap|spc|check NAME   accessors
  show NAME                header dump
  list                     all named strings
  stats                    allocator counters
TEXT with spaces goes in double quotes; Go escapes apply.`

// session binds names to handles of one Space.
type session struct {
	sp      *stx.Space
	heap    *alloc.FreeList
	names   map[string]stx.Handle
	backend string
	closer  func(context.Context) error
}

func openSession(ctx context.Context, cfg config) (*session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var opts []stx.Option
	if cfg.Align != 0 {
		opts = append(opts, stx.WithAlign(cfg.Align))
	}

	s := &session{
		names:   make(map[string]stx.Handle),
		backend: cfg.Backend,
	}

	switch cfg.Backend {
	case backendWasm:
		eng, err := engine.NewEngineWithConfig(ctx, &engine.Config{
			MemoryLimitPages: cfg.MaxPages,
			HeapLimit:        cfg.Limit,
		})
		if err != nil {
			return nil, err
		}
		inst, err := eng.NewSpace(ctx)
		if err != nil {
			eng.Close(ctx)
			return nil, err
		}
		s.heap = inst.Heap()
		s.sp = stx.NewSpace(inst.Memory(), s.heap, opts...)
		s.closer = func(ctx context.Context) error {
			inst.Close(ctx)
			return eng.Close(ctx)
		}

	default:
		mem := memory.NewSlice(cfg.Pages, cfg.MaxPages)
		s.heap = alloc.NewFreeList(mem, alloc.Config{Limit: cfg.Limit})
		s.sp = stx.NewSpace(mem, s.heap, opts...)
	}
	return s, nil
}

func (s *session) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer(ctx)
}

// run executes a script, one command per line. Blank lines and lines starting
// with # are skipped. Command failures are reported and do not stop the script.
func (s *session) run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out, err := s.exec(line)
		if out != "" {
			fmt.Fprintln(w, out)
		}
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

// exec runs a single command line and returns its output. A failed append
// may return both output (the sizing hint) and an error.
func (s *session) exec(line string) (string, error) {
	args, err := splitArgs(line)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return "", nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "help":
		return helpText, nil
	case "new":
		return s.cmdNew(args)
	case "from":
		return s.cmdFrom(args)
	case "dup":
		return s.cmdDup(args)
	case "free":
		return s.cmdFree(args)
	case "reset":
		return s.cmdReset(args)
	case "append":
		return s.cmdAppend(args)
	case "appendn":
		return s.cmdAppendN(args)
	case "grow":
		return s.cmdGrow(args)
	case "format":
		return s.cmdFormat(args)
	case "resize":
		return s.cmdResize(args)
	case "equal":
		return s.cmdEqual(args)
	case "len", "cap", "spc", "check":
		return s.cmdAccessor(cmd, args)
	case "show":
		return s.cmdShow(args)
	case "list":
		return s.cmdList()
	case "stats":
		return s.cmdStats(), nil
	default:
		return "", errors.NotFound(errors.PhaseConfig, "command", cmd)
	}
}

func (s *session) cmdNew(args []string) (string, error) {
	if err := arity(errors.PhaseNew, args, 2, "new NAME CAP"); err != nil {
		return "", err
	}
	capacity, err := parseU32(errors.PhaseNew, args[1])
	if err != nil {
		return "", err
	}
	h, err := s.sp.New(capacity)
	if err != nil {
		return "", err
	}
	return s.bind(args[0], h), nil
}

func (s *session) cmdFrom(args []string) (string, error) {
	if err := arity(errors.PhaseNew, args, 2, "from NAME TEXT"); err != nil {
		return "", err
	}
	h, err := s.sp.From(args[1])
	if err != nil {
		return "", err
	}
	return s.bind(args[0], h), nil
}

func (s *session) cmdDup(args []string) (string, error) {
	if err := arity(errors.PhaseDup, args, 2, "dup DST SRC"); err != nil {
		return "", err
	}
	src, err := s.lookup(errors.PhaseDup, args[1])
	if err != nil {
		return "", err
	}
	h, err := s.sp.Dup(src)
	if err != nil {
		return "", err
	}
	return s.bind(args[0], h), nil
}

func (s *session) cmdFree(args []string) (string, error) {
	if err := arity(errors.PhaseFree, args, 1, "free NAME"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseFree, args[0])
	if err != nil {
		return "", err
	}
	s.sp.Free(h)
	delete(s.names, args[0])
	return "", nil
}

func (s *session) cmdReset(args []string) (string, error) {
	if err := arity(errors.PhaseAppend, args, 1, "reset NAME"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseAppend, args[0])
	if err != nil {
		return "", err
	}
	s.sp.Reset(h)
	return s.describe(args[0], h), nil
}

func (s *session) cmdAppend(args []string) (string, error) {
	if err := arity(errors.PhaseAppend, args, 2, "append NAME TEXT"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseAppend, args[0])
	if err != nil {
		return "", err
	}
	n, err := s.sp.Append(h, args[1])
	return strconv.FormatInt(n, 10), err
}

func (s *session) cmdAppendN(args []string) (string, error) {
	if err := arity(errors.PhaseAppend, args, 3, "appendn NAME N TEXT"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseAppend, args[0])
	if err != nil {
		return "", err
	}
	limit, err := parseU32(errors.PhaseAppend, args[1])
	if err != nil {
		return "", err
	}
	n, err := s.sp.AppendN(h, args[2], limit)
	return strconv.FormatInt(n, 10), err
}

func (s *session) cmdGrow(args []string) (string, error) {
	if err := arity(errors.PhaseAppend, args, 2, "grow NAME TEXT"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseAppend, args[0])
	if err != nil {
		return "", err
	}
	nh, n, err := s.sp.AppendGrow(h, args[1])
	if err != nil {
		return "", err
	}
	s.names[args[0]] = nh
	if nh != h {
		return fmt.Sprintf("%d (moved %#x -> %#x)", n, h, nh), nil
	}
	return strconv.FormatInt(n, 10), nil
}

func (s *session) cmdFormat(args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.InvalidInput(errors.PhaseFormat, "usage: format NAME FMT [ARGS...]")
	}
	h, err := s.lookup(errors.PhaseFormat, args[0])
	if err != nil {
		return "", err
	}
	values := make([]any, 0, len(args)-2)
	for _, a := range args[2:] {
		values = append(values, parseValue(a))
	}
	n, err := s.sp.AppendFormat(h, args[1], values...)
	return strconv.FormatInt(n, 10), err
}

func (s *session) cmdResize(args []string) (string, error) {
	if err := arity(errors.PhaseResize, args, 2, "resize NAME CAP"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseResize, args[0])
	if err != nil {
		return "", err
	}
	capacity, err := parseU32(errors.PhaseResize, args[1])
	if err != nil {
		return "", err
	}
	nh, err := s.sp.Resize(h, capacity)
	if err != nil {
		return "", err
	}
	s.names[args[0]] = nh
	return s.describe(args[0], nh), nil
}

func (s *session) cmdEqual(args []string) (string, error) {
	if err := arity(errors.PhaseMemory, args, 2, "equal A B"); err != nil {
		return "", err
	}
	a, err := s.lookup(errors.PhaseMemory, args[0])
	if err != nil {
		return "", err
	}
	b, err := s.lookup(errors.PhaseMemory, args[1])
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(s.sp.Equal(a, b)), nil
}

func (s *session) cmdAccessor(cmd string, args []string) (string, error) {
	if err := arity(errors.PhaseMemory, args, 1, cmd+" NAME"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseMemory, args[0])
	if err != nil {
		return "", err
	}
	switch cmd {
	case "len":
		return strconv.FormatUint(uint64(s.sp.Len(h)), 10), nil
	case "cap":
		return strconv.FormatUint(uint64(s.sp.Cap(h)), 10), nil
	case "spc":
		return strconv.FormatUint(uint64(s.sp.Spc(h)), 10), nil
	default:
		return strconv.FormatBool(s.sp.Check(h)), nil
	}
}

func (s *session) cmdShow(args []string) (string, error) {
	if err := arity(errors.PhaseMemory, args, 1, "show NAME"); err != nil {
		return "", err
	}
	h, err := s.lookup(errors.PhaseMemory, args[0])
	if err != nil {
		return "", err
	}
	var b strings.Builder
	s.sp.Show(&b, h)
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (s *session) cmdList() (string, error) {
	var lines []string
	for _, name := range slices.Sorted(maps.Keys(s.names)) {
		lines = append(lines, s.describe(name, s.names[name]))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *session) cmdStats() string {
	st := s.heap.Stats()
	return fmt.Sprintf("backend:%s blocks:%d in_use:%d free:%d spans:%d top:%d grown:%d allocs:%d reallocs:%d frees:%d failures:%d",
		s.backend, st.Blocks, st.InUse, st.Free, st.Spans, st.Top, st.Grown,
		st.Allocs, st.Reallocs, st.Frees, st.Failures)
}

// bind names h, releasing whatever the name held before.
func (s *session) bind(name string, h stx.Handle) string {
	if old, ok := s.names[name]; ok && old != h {
		s.sp.Free(old)
	}
	s.names[name] = h
	return s.describe(name, h)
}

func (s *session) describe(name string, h stx.Handle) string {
	info, ok := s.sp.Inspect(h)
	if !ok {
		return fmt.Sprintf("%s: invalid handle %#x", name, h)
	}
	return fmt.Sprintf("%s @%#x %s %s", name, h, info.Width, info)
}

func (s *session) lookup(phase errors.Phase, name string) (stx.Handle, error) {
	h, ok := s.names[name]
	if !ok {
		return 0, errors.NotFound(phase, "string", name)
	}
	return h, nil
}

func arity(phase errors.Phase, args []string, n int, usage string) error {
	if len(args) != n {
		return errors.InvalidInput(phase, "usage: "+usage)
	}
	return nil
}

func parseU32(phase errors.Phase, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.Wrap(phase, errors.KindInvalidInput, err, "parse "+s)
	}
	return uint32(v), nil
}

// parseValue turns a format argument into an integer, a float or a string.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// splitArgs splits a command line on blanks. A double-quoted token is
// unquoted with Go string rules.
func splitArgs(line string) ([]string, error) {
	var args []string
	for {
		line = strings.TrimLeft(line, " \t")
		if line == "" {
			return args, nil
		}

		if line[0] != '"' {
			end := strings.IndexAny(line, " \t")
			if end < 0 {
				end = len(line)
			}
			args = append(args, line[:end])
			line = line[end:]
			continue
		}

		end := 1
		for end < len(line) && line[end] != '"' {
			if line[end] == '\\' {
				end++
			}
			end++
		}
		if end >= len(line) {
			return nil, errors.InvalidInput(errors.PhaseConfig, "unterminated quote")
		}
		arg, err := strconv.Unquote(line[:end+1])
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "unquote "+line[:end+1])
		}
		args = append(args, arg)
		line = line[end+1:]
	}
}
