package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceYAML = `uid: u1
name: [Alice]
tel:
  - value: 555-1111
    type: [mobile]
shortTelephone: ["1111"]
`

const peopleYAML = `- uid: u2
  name: [Bob]
  tel:
    - value: 555-2222
- uid: u3
  name: [Carol]
  tel:
    - value: 555-3333
`

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLI_SaveGetFind(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")
	alice := writeInput(t, "alice.yaml", aliceYAML)

	out, err := execute(t, "", "save", "--db", db, alice)
	require.NoError(t, err)
	assert.Equal(t, "saved u1 (key 2)\n", out)

	want := "uid: u1\nname: Alice\ntel: 555-1111 (mobile)\nshort: 1111\n"

	out, err = execute(t, "", "get", "--db", db, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = execute(t, "", "find", "--db", db, "1111")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = execute(t, "", "count", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestCLI_SaveFromStdin(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")

	out, err := execute(t, peopleYAML, "save", "--db", db, "-")
	require.NoError(t, err)
	assert.Equal(t, "saved u2 (key 2)\nsaved u3 (key 3)\n", out)
}

func TestCLI_Update(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")
	_, err := execute(t, aliceYAML, "save", "--db", db, "-")
	require.NoError(t, err)

	changed := strings.Replace(aliceYAML, "555-1111", "555-9999", 1)
	out, err := execute(t, changed, "update", "--db", db, "-")
	require.NoError(t, err)
	assert.Equal(t, "updated 1 records\n", out)

	out, err = execute(t, "", "find", "--db", db, "555-9999")
	require.NoError(t, err)
	assert.Contains(t, out, "uid: u1")

	_, err = execute(t, "", "find", "--db", db, "555-1111")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCLI_UpdateUnknown(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")

	out, err := execute(t, aliceYAML, "update", "--db", db, "-")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestCLI_Remove(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")
	_, err := execute(t, peopleYAML, "save", "--db", db, "-")
	require.NoError(t, err)

	out, err := execute(t, "", "remove", "--db", db, "u2", "u3")
	require.NoError(t, err)
	assert.Equal(t, "removed u2\nremoved u3\n", out)

	out, err = execute(t, "", "count", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestCLI_RemoveWithoutFlush(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")
	_, err := execute(t, peopleYAML, "save", "--db", db, "-")
	require.NoError(t, err)

	_, err = execute(t, "", "remove", "--db", db, "--flush=false", "u2")
	require.NoError(t, err)

	// The stored index was never rewritten, so it still names u2.
	out, err := execute(t, "", "count", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = execute(t, "", "get", "--db", db, "u2")
	require.Error(t, err)
	assert.Contains(t, out, "Error [BACKEND_ERROR]")
}

func TestCLI_GetUnknownJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")

	out, err := execute(t, "", "get", "--db", db, "--format", "json", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestCLI_ImportAssignsUIDs(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")
	input := peopleYAML + `- name: [Anonymous]
  tel:
    - value: 555-0000
`

	out, err := execute(t, input, "import", "--db", db, "--format", "json", "-")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   importResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, importResult{Imported: 3, Assigned: 1}, resp.Data)

	out, err = execute(t, "", "find", "--db", db, "555-0000")
	require.NoError(t, err)
	assert.Contains(t, out, "name: Anonymous")
}

func TestCLI_ImportWithoutAssign(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")

	out, err := execute(t, "- tel: [{value: '1'}]\n", "import", "--db", db, "--assign-uids=false", "-")
	require.Error(t, err)
	assert.Contains(t, out, "Error [INVALID_RECORD]")
}

func TestCLI_ClearAndIndex(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")
	_, err := execute(t, aliceYAML, "save", "--db", db, "-")
	require.NoError(t, err)

	out, err := execute(t, "", "index", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "uid\tu1\t2\ntel\t555-1111\t2\nshort\t1111\t2\n", out)

	out, err = execute(t, "", "clear", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "cleared\n", out)

	out, err = execute(t, "", "index", "--db", db, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"byUid":{},"byTel":{},"byShortTel":{}}}`, out)
}

func TestCLI_Flush(t *testing.T) {
	db := filepath.Join(t.TempDir(), "contacts.db")

	out, err := execute(t, "", "flush", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "flushed\n", out)
}

func TestCLI_BoltBackend(t *testing.T) {
	db := filepath.Join(t.TempDir(), "nested", "contacts.bolt")

	_, err := execute(t, peopleYAML, "save", "--backend", "bolt", "--db", db, "-")
	require.NoError(t, err)

	out, err := execute(t, "", "find", "--backend", "bolt", "--db", db, "555-3333")
	require.NoError(t, err)
	assert.Contains(t, out, "uid: u3")
}

func TestCLI_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "contactstore.yaml")
	db := filepath.Join(dir, "from-config.bolt")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: bolt\npath: "+db+"\n"), 0o644))

	_, err := execute(t, aliceYAML, "save", "--config", cfgPath, "-")
	require.NoError(t, err)

	_, err = os.Stat(db)
	require.NoError(t, err, "config path should be used")

	out, err := execute(t, "", "count", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestCLI_MemoryBackend(t *testing.T) {
	out, err := execute(t, peopleYAML, "import", "--backend", "memory", "-")
	require.NoError(t, err)
	assert.Equal(t, "imported 2 records (0 uids assigned)\n", out)
}

func TestCLI_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing config", args: []string{"count", "--config", filepath.Join(t.TempDir(), "nope.yaml")}},
		{name: "unknown backend", args: []string{"count", "--backend", "postgres"}},
		{name: "missing input", args: []string{"save", "--backend", "memory", filepath.Join(t.TempDir(), "nope.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestCLI_BadInput(t *testing.T) {
	_, err := execute(t, "just a string\n", "save", "--backend", "memory", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to decode input")
}
