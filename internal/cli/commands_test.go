package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/launchcheck/internal/config"
	"github.com/danieljhkim/launchcheck/internal/generator"
	"github.com/danieljhkim/launchcheck/internal/inspect"
	"github.com/danieljhkim/launchcheck/internal/manifest"
	"github.com/danieljhkim/launchcheck/internal/planner"
)

// setupTestEnv points the data root at a temp directory and returns a client
// tree with an executable, a locale patch and a core archive.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	t.Setenv(config.RootEnv, t.TempDir())

	client := filepath.Join(t.TempDir(), "client")
	files := map[string]string{
		"Wow.exe":                    "binary",
		"Data/common.MPQ":            "core archive",
		"Data/enUS/Patch-enUS-A.MPQ": "patch a",
		"Data/enUS/Patch-enUS-B.MPQ": "patch b",
		"WTF/Config.wtf":             "user settings",
	}
	for rel, content := range files {
		path := filepath.Join(client, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return client
}

// resetFlags restores every command flag to its default between runs.
func resetFlags() {
	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
	settings = nil
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func generateInto(t *testing.T, client string) string {
	t.Helper()
	out := t.TempDir()
	_, _, err := execute(t, "generate", client, out, "https://cdn.example.com/client")
	require.NoError(t, err)
	return out
}

func TestGenerateCommand_WritesManifests(t *testing.T) {
	client := setupTestEnv(t)
	out := t.TempDir()

	stdout, _, err := execute(t, "--json", "generate", client, out, "https://cdn.example.com/client")
	require.NoError(t, err)

	var result struct {
		FileCount  int      `json:"fileCount"`
		PatchCount int      `json:"patchCount"`
		Written    []string `json:"written"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 4, result.FileCount, "WTF is ignored")
	assert.Equal(t, 2, result.PatchCount)
	assert.Len(t, result.Written, 2)

	f, err := os.Open(filepath.Join(out, generator.PatchManifestFile))
	require.NoError(t, err)
	defer f.Close()
	m, err := manifest.DecodePatchManifest(f)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/client", m.BaseURL)
	_, ok := m.Lookup("Data/enUS/Patch-enUS-A.MPQ")
	assert.True(t, ok)
}

func TestGenerateCommand_MissingDirectory(t *testing.T) {
	setupTestEnv(t)

	t.Run("no argument", func(t *testing.T) {
		stdout, stderr, err := execute(t, "generate")
		require.Error(t, err)
		assert.Contains(t, stdout+stderr, "Usage:")
	})

	t.Run("directory does not exist", func(t *testing.T) {
		stdout, stderr, err := execute(t, "generate", filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.Contains(t, stdout+stderr, "Usage:")
		assert.Equal(t, 1, ExitCode(err))
	})
}

func TestVerifyCommand_ReadyToLaunch(t *testing.T) {
	client := setupTestEnv(t)
	out := generateInto(t, client)

	stdout, _, err := execute(t, "verify", client,
		"--manifest-url", filepath.Join(out, generator.PatchManifestFile), "--output", "json")
	require.NoError(t, err)

	var summary inspect.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, inspect.StatusReadyToLaunch, summary.Status)
	assert.Empty(t, summary.MismatchedFiles)
}

func TestVerifyCommand_RequiresUpdate(t *testing.T) {
	client := setupTestEnv(t)
	out := generateInto(t, client)

	require.NoError(t, os.WriteFile(filepath.Join(client, "Data", "enUS", "Patch-enUS-B.MPQ"), []byte("patch B"), 0644))

	stdout, _, err := execute(t, "verify", client,
		"--manifest-url", filepath.Join(out, generator.PatchManifestFile), "--output", "json", "--prefilter")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
	var errOut bytes.Buffer
	PrintCommandError(&errOut, err)
	assert.Empty(t, errOut.String())

	var summary inspect.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, inspect.StatusRequiresUpdate, summary.Status)
	require.Len(t, summary.MismatchedFiles, 1)
	assert.Equal(t, "Data/enUS/Patch-enUS-B.MPQ", summary.MismatchedFiles[0].Entry.RelativePath)

	var withPlan struct {
		RepairPlan *planner.RepairPlan `json:"repairPlan"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &withPlan))
	require.NotNil(t, withPlan.RepairPlan)
	require.Len(t, withPlan.RepairPlan.Operations, 1)
	op := withPlan.RepairPlan.Operations[0]
	assert.Equal(t, planner.OpDownload, op.Type)
	assert.Equal(t, "https://cdn.example.com/client/Patch-enUS-B.MPQ", op.URL)
	assert.Equal(t, filepath.Join(client, "Data", "enUS", "Patch-enUS-B.MPQ"), op.DestPath)
}

func TestVerifyCommand_TextOutput(t *testing.T) {
	client := setupTestEnv(t)
	out := generateInto(t, client)
	require.NoError(t, os.Remove(filepath.Join(client, "Data", "enUS", "Patch-enUS-A.MPQ")))

	stdout, stderr, err := execute(t, "verify", client, "--manifest-url", filepath.Join(out, generator.PatchManifestFile))
	require.Error(t, err)
	assert.Contains(t, stdout, "RequiresUpdate")
	assert.Contains(t, stdout, "Patch-enUS-A.MPQ")
	assert.Contains(t, stdout, "missing")
	assert.Contains(t, stderr, "100%")
}

func TestVerifyCommand_NetworkError(t *testing.T) {
	client := setupTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	stdout, _, err := execute(t, "verify", client, "--manifest-url", srv.URL+"/patch_manifest.json", "-o", "yaml")
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, stdout, "status: NetworkError")
}

func TestVerifyCommand_RequiresManifestURL(t *testing.T) {
	client := setupTestEnv(t)

	_, _, err := execute(t, "verify", client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest")
	assert.Equal(t, 1, ExitCode(err))
}

func TestVerifyCommand_UnsupportedOutput(t *testing.T) {
	client := setupTestEnv(t)

	_, _, err := execute(t, "verify", client, "--manifest-url", "x", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestQuickCommand(t *testing.T) {
	client := setupTestEnv(t)

	tests := []struct {
		name     string
		dir      string
		wantCode int
		want     string
	}{
		{"installed", client, 0, "status: ReadyToLaunch"},
		{"empty directory", t.TempDir(), 4, "status: MissingExecutable"},
		{"absent directory", filepath.Join(t.TempDir(), "absent"), 4, "status: NotInstalled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "quick", tt.dir, "-o", "yaml")
			assert.Equal(t, tt.wantCode, ExitCode(err))
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestClassifyCommand(t *testing.T) {
	setupTestEnv(t)

	stdout, _, err := execute(t, "--json", "classify", "Data/enUS/Patch-enUS-C.MPQ", `Data\common.MPQ`, "realmlist.wtf")
	require.NoError(t, err)

	var got []manifest.ClassifiedFile
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 3)
	assert.Equal(t, manifest.KindPatch, got[0].Kind)
	assert.Equal(t, "Data/common.MPQ", got[1].RelativePath)
	assert.Equal(t, manifest.KindCore, got[1].Kind)
	assert.Equal(t, manifest.KindConfig, got[2].Kind)
}

func TestHashCommand(t *testing.T) {
	client := setupTestEnv(t)
	path := filepath.Join(client, "Wow.exe")

	stdout, _, err := execute(t, "--json", "hash", path)
	require.NoError(t, err)

	var got []fileDigest
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 1)

	sum := sha256.Sum256([]byte("binary"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got[0].FullHash)
	assert.Equal(t, got[0].FullHash, got[0].Fingerprint, "small files fingerprint as a whole")
	assert.Equal(t, int64(len("binary")), got[0].Size)
}

func TestConfigFileIsHonoured(t *testing.T) {
	client := setupTestEnv(t)
	out := generateInto(t, client)

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	body := "manifest_url: " + filepath.Join(out, generator.PatchManifestFile) + "\ninstall_dir: " + client + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0644))

	stdout, _, err := execute(t, "--config", cfg, "verify", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, string(inspect.StatusReadyToLaunch))
}

// publishClientManifest generates a client manifest for client that
// advertises update, and returns its path.
func publishClientManifest(t *testing.T, client string, update *manifest.LauncherUpdate) string {
	t.Helper()
	out := t.TempDir()
	_, _, err := execute(t, "generate", client, out, "https://cdn.example.com/client", "--client-manifest")
	require.NoError(t, err)

	path := filepath.Join(out, generator.ClientManifestFile)
	f, err := os.Open(path)
	require.NoError(t, err)
	m, err := manifest.DecodeClientManifest(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)

	m.LauncherUpdate = update
	data, err := manifest.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestVerifyCommand_LauncherUpdate(t *testing.T) {
	client := setupTestEnv(t)
	published := publishClientManifest(t, client, &manifest.LauncherUpdate{
		Version:     "2.1.0",
		DownloadURL: "https://cdn.example.com/launcher.exe",
		Mandatory:   true,
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-o", "json", "--launcher-version", "2.0.3")
		require.NoError(t, err)

		var got struct {
			Status         inspect.Status `json:"status"`
			LauncherUpdate *struct {
				Current     string `json:"current"`
				Available   string `json:"available"`
				DownloadURL string `json:"downloadUrl"`
				Mandatory   bool   `json:"mandatory"`
			} `json:"launcherUpdate"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, inspect.StatusReadyToLaunch, got.Status)
		require.NotNil(t, got.LauncherUpdate)
		assert.Equal(t, "2.0.3", got.LauncherUpdate.Current)
		assert.Equal(t, "2.1.0", got.LauncherUpdate.Available)
		assert.Equal(t, "https://cdn.example.com/launcher.exe", got.LauncherUpdate.DownloadURL)
		assert.True(t, got.LauncherUpdate.Mandatory)
	})

	t.Run("yaml", func(t *testing.T) {
		stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-o", "yaml", "--launcher-version", "2.0.3")
		require.NoError(t, err)
		assert.Contains(t, stdout, "launcherUpdate:")
		assert.Contains(t, stdout, "available: 2.1.0")
		assert.Contains(t, stdout, "mandatory: true")
	})

	t.Run("text", func(t *testing.T) {
		stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-q", "--launcher-version", "2.0.3")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Launcher update required: 2.1.0 (installed 2.0.3)")
		assert.Contains(t, stdout, "https://cdn.example.com/launcher.exe")
	})

	t.Run("up to date", func(t *testing.T) {
		stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-o", "json", "--launcher-version", "2.1.0")
		require.NoError(t, err)
		assert.NotContains(t, stdout, "launcherUpdate")
	})

	t.Run("version from config", func(t *testing.T) {
		t.Setenv("LAUNCHCHECK_LAUNCHER_VERSION", "1.9.9")
		stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"current": "1.9.9"`)
	})

	t.Run("unversioned build", func(t *testing.T) {
		restoreVersion(t)
		rootCmd.Version = "dev"
		stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-o", "json")
		require.NoError(t, err)
		assert.NotContains(t, stdout, "launcherUpdate")
	})
}

func TestVerifyCommand_PublishedClientManifestMismatch(t *testing.T) {
	client := setupTestEnv(t)
	published := publishClientManifest(t, client, nil)
	require.NoError(t, os.WriteFile(filepath.Join(client, "Data", "enUS", "Patch-enUS-A.MPQ"), []byte("patch!"), 0644))

	stdout, _, err := execute(t, "verify", client, "--manifest-url", published, "-o", "json")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	var summary inspect.Summary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, inspect.StatusRequiresUpdate, summary.Status)
	require.Len(t, summary.MismatchedFiles, 1)
	assert.Equal(t, "Data/enUS/Patch-enUS-A.MPQ", summary.MismatchedFiles[0].Entry.RelativePath)
}

func TestVerifyCommand_RejectsEmptyErrorBody(t *testing.T) {
	client := setupTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer srv.Close()

	stdout, _, err := execute(t, "verify", client, "--manifest-url", srv.URL, "-o", "yaml")
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, stdout, "status: NetworkError")
}

func TestClassifyCommand_OptionalDirs(t *testing.T) {
	setupTestEnv(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("optional_dirs:\n  - Interface\n"), 0644))

	stdout, _, err := execute(t, "--config", cfg, "--json", "classify", "Interface/AddOns/Foo/Foo.toc", "Data/common.MPQ")
	require.NoError(t, err)

	var got []manifest.ClassifiedFile
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 2)
	assert.Equal(t, manifest.KindOptional, got[0].Kind)
	assert.Equal(t, manifest.KindCore, got[1].Kind)
}

func TestLogging_WritesToCommandStderr(t *testing.T) {
	client := setupTestEnv(t)

	stdout, stderr, err := execute(t, "-v", "generate", client, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stderr, "scanning client directory")
	assert.NotContains(t, stdout, "scanning client directory")
}

func TestLogging_LogToFile(t *testing.T) {
	client := setupTestEnv(t)
	t.Setenv("LAUNCHCHECK_LOG_TO_FILE", "true")

	_, _, err := execute(t, "generate", client, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(os.Getenv(config.RootEnv), "logs", "launchcheck.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "scanning client directory")
}

func TestPrintCommandError(t *testing.T) {
	var buf bytes.Buffer
	PrintCommandError(&buf, errors.New("client directory \"x\" does not exist"))
	assert.Contains(t, buf.String(), `client directory "x" does not exist`)

	buf.Reset()
	PrintCommandError(&buf, &ExitError{Code: 2, Err: errReported})
	assert.Empty(t, buf.String())

	buf.Reset()
	PrintCommandError(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		report inspect.Report
		want   int
	}{
		{inspect.ReadyToLaunch{}, 0},
		{inspect.RequiresUpdate{}, 2},
		{inspect.RequiresRepair{Reason: "x"}, 2},
		{inspect.NetworkError{Reason: "x"}, 3},
		{inspect.NotInstalled{}, 4},
		{inspect.MissingExecutable{}, 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.report.Status()), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(reportExit(tt.report)))
		})
	}
}
