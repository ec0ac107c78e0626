package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) record(name string) error { s.calls = append(s.calls, name); return nil }

func (s *stubExec) isLoggedIn() bool                                      { return s.loggedIn }
func (s *stubExec) Login(context.Context) error                           { return s.record("login") }
func (s *stubExec) List(_ context.Context, _ []string) error              { return s.record("ls") }
func (s *stubExec) Touch(_ context.Context, _ []string) error             { return s.record("touch") }
func (s *stubExec) Mkdir(_ context.Context, _ []string) error             { return s.record("mkdir") }
func (s *stubExec) Remove(_ context.Context, _ []string) error            { return s.record("rm") }
func (s *stubExec) Download(_ context.Context, _ []string) error          { return s.record("dwl") }
func (s *stubExec) DownloadAbort(_ context.Context, _ []string) error     { return s.record("abort") }
func (s *stubExec) DownloadPriority(_ context.Context, _ []string) error  { return s.record("pri") }
func (s *stubExec) Upload(_ context.Context, _ []string) error            { return s.record("upl") }
func (s *stubExec) UserAdd(context.Context) error                         { return s.record("useradd") }
func (s *stubExec) UserDelete(_ context.Context, _ []string) error        { return s.record("userdel") }
func (s *stubExec) UserModify(context.Context) error                      { return s.record("usermod") }
func (s *stubExec) UserShow(_ context.Context, _ []string) error          { return s.record("user") }

func runScript(t *testing.T, s *stubExec, script string) []string {
	t.Helper()

	origPrintln := printlnFn
	t.Cleanup(func() { printlnFn = origPrintln })
	var output []string
	printlnFn = func(args ...any) (int, error) {
		for _, arg := range args {
			output = append(output, strings.TrimSpace(arg.(string)))
		}
		return 0, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), s, func() string { return "test" }, scanner)
	return output
}

func TestREPL_DispatchesCommands(t *testing.T) {
	s := &stubExec{loggedIn: true}
	runScript(t, s, strings.Join([]string{
		"login",
		"ls alice/public",
		"touch alice/public a.txt",
		"mkdir alice/public sub",
		"rm alice/public/a.txt",
		"dwl alice/public/a.txt 5",
		"pri alice/public/a.txt 9",
		"abort alice/public/a.txt",
		"upl file.txt alice/private",
		"useradd",
		"userdel bob",
		"usermod",
		"user bob",
		"exit",
	}, "\n"))

	assert.Equal(t, []string{
		"login", "ls", "touch", "mkdir", "rm", "dwl", "pri", "abort", "upl",
		"useradd", "userdel", "usermod", "user",
	}, s.calls)
}

func TestREPL_UnknownCommand(t *testing.T) {
	s := &stubExec{}
	output := runScript(t, s, "frobnicate\nexit")

	require.Contains(t, output, "Unknown command:")
	assert.Empty(t, s.calls)
}

func TestREPL_ExitsOnEOF(t *testing.T) {
	s := &stubExec{}
	runScript(t, s, "ls\n")
	assert.Equal(t, []string{"ls"}, s.calls)
}
