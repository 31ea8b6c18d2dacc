package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	starterScenario   = "../harness/testdata/scenarios/starter_cycle.yaml"
	handLimitScenario = "../harness/testdata/scenarios/hand_limit.yaml"
	starterCatalog    = "../catalog/testdata/starter"
)

// execute runs the root command with args and returns stdout and the
// command error. Audit output is disabled so failing subscribers never
// write files into the repository.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ROUGE_AUDIT_SINK", "none")
	t.Setenv("ROUGE_DATABASE", "")

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

// decodeData unmarshals the data half of a JSON response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// seedDatabase runs scenarios against a fresh database and returns its path.
func seedDatabase(t *testing.T, scenarios ...string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "battles.db")
	for _, s := range scenarios {
		_, err := execute(t, "run", s, "--db", db)
		require.NoError(t, err)
	}
	return db
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
