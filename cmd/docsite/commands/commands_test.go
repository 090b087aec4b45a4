package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/pipeline"
)

func TestParseLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv(LogLevelEnv, "WARN")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(true))

	t.Setenv(LogLevelEnv, "bogus")
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))
}

func TestCLIParses(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Bind(&Global{}))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"-c", "site.yaml", "build", "--audit", "--strict", "-o", "out"})
	require.NoError(t, err)
	assert.Equal(t, "build", ctx.Command())
	assert.True(t, cli.Build.Audit)
	assert.True(t, cli.Build.Strict)
	assert.Equal(t, "site.yaml", filepath.Base(cli.Config))

	ctx, err = parser.Parse([]string{"schedule", "--interval", "15m", "--metrics-addr", ":9100"})
	require.NoError(t, err)
	assert.Equal(t, "schedule", ctx.Command())
	assert.Equal(t, 15*time.Minute, cli.Schedule.Interval)
	assert.Equal(t, ":9100", cli.Schedule.MetricsAddr)

	ctx, err = parser.Parse([]string{"history", "-n", "3", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "history", ctx.Command())
	assert.Equal(t, 3, cli.History.Limit)
}

func TestBuildCmdApply(t *testing.T) {
	cfg := &config.Config{}
	(&BuildCmd{Source: "/src", Output: "/out", Audit: true, Strict: true}).apply(cfg)
	assert.Equal(t, "/src", cfg.Source.Root)
	assert.Equal(t, "/out", cfg.Output.Root)
	assert.True(t, cfg.Build.Audit)
	assert.True(t, cfg.Build.Strict)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsite.yaml")
	require.NoError(t, (&InitCmd{}).Run(nil, &CLI{Config: path}))
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Source.RepositoryURL)

	require.Error(t, (&InitCmd{}).Run(nil, &CLI{Config: path}))
	require.NoError(t, (&InitCmd{Force: true}).Run(nil, &CLI{Config: path}))
}

func newSiteConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	readme := filepath.Join(src, "examples", "hello", "README.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(readme), 0o750))
	require.NoError(t, os.WriteFile(readme, []byte("# Hello\n"), 0o600))

	yml := "source:\n  root: " + src + "\n  repository_url: https://github.com/org/repo\n" +
		"output:\n  root: " + filepath.Join(root, "site") + "\n" +
		"metrics:\n  textfile: " + filepath.Join(root, "docsite.prom") + "\n" +
		"state:\n  ledger_path: " + filepath.Join(root, "ledger.db") + "\n"
	cfg, err := config.Parse([]byte(yml))
	require.NoError(t, err)
	return cfg
}

func TestRuntimeBuildExportsMetricsAndLedger(t *testing.T) {
	cfg := newSiteConfig(t)
	rt, err := newRuntime(context.Background(), cfg, slog.Default(), runtimeOptions{})
	require.NoError(t, err)
	defer rt.Close()

	report, err := rt.build(context.Background(), "build")
	require.NoError(t, err)
	assert.Equal(t, 1, report.PagesByLocale["en"])

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "docsite_")

	projection := eventstore.NewHistoryProjection(rt.store, 5)
	require.NoError(t, projection.Rebuild(context.Background()))
	require.Len(t, projection.History(), 1)
	assert.Equal(t, report.RunID, projection.History()[0].RunID)

	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, projection.History(), false))
	assert.Contains(t, buf.String(), report.RunID[:8])
	assert.Contains(t, buf.String(), "success")
}

func TestRuntimeHandler(t *testing.T) {
	cfg := newSiteConfig(t)
	rt, err := newRuntime(context.Background(), cfg, slog.Default(), runtimeOptions{metrics: true})
	require.NoError(t, err)
	defer rt.Close()

	srv := httptest.NewServer(rt.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "last_run")

	_, err = rt.build(context.Background(), "watch")
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body = map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	run, ok := body["last_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "watch", run["trigger"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &pipeline.Report{
		RunID:         "run-1",
		Outcome:       "warning",
		Commit:        "abc1234",
		Examples:      2,
		Pages:         []string{"a.md", "b.md"},
		PagesByLocale: map[string]int{"zh-CN": 1, "en": 2},
		Changed:       []string{"a.md"},
		Start:         time.Now(),
		End:           time.Now(),
	})
	out := buf.String()
	assert.Contains(t, out, "Build run-1: warning")
	assert.Contains(t, out, "source commit: abc1234")
	assert.Contains(t, out, "examples: 2, pages: 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("(en)")), bytes.Index(buf.Bytes(), []byte("(zh-CN)")))
	assert.Contains(t, out, "changed since last run: 1")
}

func TestPrintHistoryEmptyAndJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printHistory(&buf, nil, false))
	assert.Equal(t, "No builds recorded\n", buf.String())

	buf.Reset()
	require.NoError(t, printHistory(&buf, []*eventstore.RunSummary{{RunID: "r1", Status: "success"}}, true))
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0]["run_id"])
}
