package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fabricops/fabricctl/pkg/engine"
	"github.com/fabricops/fabricctl/pkg/migration"
	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/fabricops/fabricctl/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Logger = zerolog.Nop()
	gin.SetMode(gin.TestMode)
}

type cli struct {
	t       *testing.T
	baseURL string
	config  string
}

func newCLI(t *testing.T, policy string) *cli {
	cfg := models.NewServerConfiguration()
	srv := httptest.NewServer(server.NewAPI(cfg).Gin)
	t.Cleanup(srv.Close)

	config := filepath.Join(t.TempDir(), "fabricctl.yaml")
	content := "token: test-token\npoll_interval: 1ms\nrate_limit: 1000\nrate_burst: 100\n"
	if policy != "" {
		content += "policy: |\n  " + strings.ReplaceAll(policy, "\n", "\n  ") + "\n"
	}
	require.NoError(t, os.WriteFile(config, []byte(content), 0o600))

	return &cli{t: t, baseURL: srv.URL + "/v1", config: config}
}

func (c *cli) run(args ...string) (string, error) {
	buf := &bytes.Buffer{}
	stdout = buf
	defer func() { stdout = os.Stdout }()

	cmd := newRootCmd()
	resetFlags(cmd)
	cmd.SetArgs(append([]string{"--config", c.config, "--base-url", c.baseURL, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// Commands are package globals, flag values would leak between runs
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func (c *cli) must(args ...string) string {
	out, err := c.run(args...)
	require.NoError(c.t, err, strings.Join(args, " "))
	return out
}

func decode[T any](t *testing.T, out string) T {
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestWorkspaceCommands(t *testing.T) {
	c := newCLI(t, "")

	ws := decode[models.Workspace](t, c.must("workspaces", "create", "demo", "--description", "scratch"))
	assert.NotEmpty(t, ws.ID)
	assert.Equal(t, "scratch", ws.Description)

	byName := decode[models.Workspace](t, c.must("workspaces", "get", "demo"))
	assert.Equal(t, ws.ID, byName.ID)

	c.must("workspaces", "update", "demo", "--name", "renamed")
	list := decode[[]models.Workspace](t, c.must("workspaces", "list"))
	require.Len(t, list, 1)
	assert.Equal(t, "renamed", list[0].DisplayName)

	_, err := c.run("workspaces", "get", "demo")
	assert.Error(t, err)

	_, err = c.run("workspaces", "assign-capacity", ws.ID, "not-a-guid")
	assert.ErrorContains(t, err, "not a valid id")

	c.must("workspaces", "delete", ws.ID)
	assert.Empty(t, decode[[]models.Workspace](t, c.must("workspaces", "list")))
}

func TestItemDefinitionRoundTrip(t *testing.T) {
	c := newCLI(t, "")
	c.must("workspaces", "create", "demo")

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "notebook-content.py"), []byte("print(1)\n"), 0o644))
	item := decode[models.Item](t, c.must("items", "create", "demo", "load", "--type", "Notebook", "--from", src))
	assert.Equal(t, "Notebook", item.Type)

	out := t.TempDir()
	c.must("items", "get-definition", "demo", "load", "--type", "Notebook", "--out", out)
	content, err := os.ReadFile(filepath.Join(out, "load.Notebook", "notebook-content.py"))
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", string(content))

	require.NoError(t, os.WriteFile(filepath.Join(out, "load.Notebook", "notebook-content.py"), []byte("print(2)\n"), 0o644))
	c.must("items", "update-definition", "demo", "load", "--from", filepath.Join(out, "load.Notebook"))

	def := decode[models.ItemDefinition](t, c.must("items", "get-definition", "demo", item.ID))
	require.Len(t, def.Parts, 1)
	decoded, err := def.Parts[0].Content()
	require.NoError(t, err)
	assert.Equal(t, "print(2)\n", string(decoded))

	_, err = c.run("items", "create", "demo", "other")
	assert.ErrorContains(t, err, "--type is required")
}

func TestJobCommands(t *testing.T) {
	c := newCLI(t, "")
	c.must("workspaces", "create", "demo")
	c.must("items", "create", "demo", "copy", "--type", "DataPipeline")

	job := decode[models.JobInstance](t, c.must("jobs", "run", "demo", "copy", "--job-type", "Pipeline", "--data", `{"parameters":{}}`, "--wait"))
	assert.Equal(t, models.JobCompleted, job.Status)

	_, err := c.run("jobs", "run", "demo", "copy", "--job-type", "Pipeline", "--data", "{")
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestMigrateSchedules(t *testing.T) {
	c := newCLI(t, "")
	c.must("workspaces", "create", "demo")
	c.must("items", "create", "demo", "load_sales", "--type", migration.ItemTypeDataPipeline)
	c.must("items", "create", "demo", "load_stock", "--type", migration.ItemTypeDataPipeline)

	report := decode[migration.Report](t, c.must("migrate", "schedules",
		"--triggers", "../../pkg/migration/testdata/triggers.json", "--workspace", "demo"))
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.SchedulesCreated)

	schedules := decode[[]models.ItemSchedule](t, c.must("schedules", "list", "demo", "load_sales"))
	require.Len(t, schedules, 1)
	assert.Equal(t, models.ScheduleDaily, schedules[0].Configuration.Type)
	assert.Equal(t, []string{"02:00", "02:30"}, schedules[0].Configuration.Times)
}

func TestGuardPolicy(t *testing.T) {
	c := newCLI(t, `deny contains "deletes need a ticket" if {
	deleting
	not input.params.ticket
}`)
	ws := decode[models.Workspace](t, c.must("workspaces", "create", "demo"))

	_, err := c.run("workspaces", "delete", ws.ID)
	assert.ErrorIs(t, err, engine.ErrDenied)

	c.must("--param", "ticket=CHG-1", "workspaces", "delete", ws.ID)
}

func TestTokenCommands(t *testing.T) {
	c := newCLI(t, "")
	assert.Equal(t, "test-token\n", c.must("token", "print"))
	assert.Equal(t, "export FABRIC_TOKEN=test-token\n", c.must("token", "env"))
}

func TestParams(t *testing.T) {
	s := State{paramsList: []string{"a=1", "b=x=y"}}
	params, err := s.params()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1", "b": "x=y"}, params)

	s.paramsList = []string{"invalid"}
	_, err = s.params()
	assert.Error(t, err)
}

func TestMissingConfiguration(t *testing.T) {
	s := State{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := s.loadConfiguration()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
