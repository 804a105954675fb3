package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const greetScenario = `name: greet_happy_path
description: greet resolves both of its outcalls
call:
  method: greet
  arg: { name: Wizard }
mocks:
  - method: prepare_greet
    reply: Hello
  - method: greet
    reply: "Hello, Wizard!"
expects:
  - method: prepare_greet
    args: [Wizard]
want:
  ok: { greeting: "Hello, Wizard!" }
`

const greetGolden = `{"output":{"value":{"greeting":"Hello, Wizard!"}},"scenario_name":"greet_happy_path","steps":2,"trace":[{"args":["Wizard"],"correlation_id":"req-1","kind":"checked","method":"prepare_greet","step":1},{"args":["Wizard"],"correlation_id":"req-1","kind":"replied","method":"prepare_greet","response":"Hello","step":1},{"args":["Hello","Wizard"],"correlation_id":"req-2","kind":"replied","method":"greet","response":"Hello, Wizard!","step":2}]}`

const quoteScenario = `name: quote_parallel
description: quote answers both parallel price requests
call:
  method: quote
  arg: { symbol: ICP }
mocks:
  - method: price_a
    reply: { cents: 1250 }
  - method: price_b
    reply: { cents: 1190 }
want:
  ok: { symbol: ICP, low: 1190, high: 1250 }
`

const wrongWantScenario = `name: wrong_want
description: the echoed value differs from want
call:
  method: echo
  arg: 1
want:
  ok: 2
`

// writeScenario writes content to dir/name, creating parent directories.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeCommand runs the root command with args and returns stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// syncBuffer is a bytes.Buffer safe for concurrent writes and reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
