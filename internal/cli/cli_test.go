package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	cmd := rootCmd
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("root --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "cissync") {
		t.Error("expected 'cissync' in help output")
	}
	if !strings.Contains(out, "sync") {
		t.Error("expected 'sync' subcommand in help output")
	}
	if !strings.Contains(out, "validate") {
		t.Error("expected 'validate' subcommand in help output")
	}
	if !strings.Contains(out, "policies") {
		t.Error("expected 'policies' subcommand in help output")
	}
	if !strings.Contains(out, "history") {
		t.Error("expected 'history' subcommand in help output")
	}
}

func TestVersionCommand(t *testing.T) {
	SetBuildInfo("test-v0.0.1", "abc123", "2026-01-01")
	defer SetBuildInfo("dev", "none", "unknown")

	// version uses fmt.Println (stdout), so just verify the command exists and runs
	ver, _, err := rootCmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("failed to find 'version' command: %v", err)
	}
	if ver.Use != "version" {
		t.Errorf("expected Use='version', got %q", ver.Use)
	}
	if version != "test-v0.0.1" {
		t.Errorf("expected version 'test-v0.0.1', got %q", version)
	}
}

func TestRootCommand_LogFlags(t *testing.T) {
	cmd := rootCmd

	logLevel := cmd.PersistentFlags().Lookup("log-level")
	if logLevel == nil {
		t.Fatal("expected --log-level persistent flag")
	}
	if logLevel.DefValue != "info" {
		t.Errorf("expected default log-level 'info', got %q", logLevel.DefValue)
	}

	logFormat := cmd.PersistentFlags().Lookup("log-format")
	if logFormat == nil {
		t.Fatal("expected --log-format persistent flag")
	}
	if logFormat.DefValue != "text" {
		t.Errorf("expected default log-format 'text', got %q", logFormat.DefValue)
	}
}

func TestSyncCommand_Flags(t *testing.T) {
	sync, _, err := rootCmd.Find([]string{"sync"})
	if err != nil {
		t.Fatalf("failed to find 'sync' command: %v", err)
	}

	expectedFlags := []string{"config", "policies", "skip-existing", "dry-run", "timeout", "output", "quiet", "from-cluster", "namespace", "token-secret", "kubeconfig", "context"}
	for _, name := range expectedFlags {
		if sync.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag on 'sync' command", name)
		}
	}

	// Verify short flags
	if sync.Flags().ShorthandLookup("o") == nil {
		t.Error("expected -o shorthand for --output")
	}
	if sync.Flags().ShorthandLookup("q") == nil {
		t.Error("expected -q shorthand for --quiet")
	}

	// Verify defaults
	skipFlag := sync.Flags().Lookup("skip-existing")
	if skipFlag.DefValue != "true" {
		t.Errorf("expected default skip-existing 'true', got %q", skipFlag.DefValue)
	}
	dryRunFlag := sync.Flags().Lookup("dry-run")
	if dryRunFlag.DefValue != "false" {
		t.Errorf("expected default dry-run 'false', got %q", dryRunFlag.DefValue)
	}
}

func TestSyncCommand_InvalidOutputRejectedEarly(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := rootCmd
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	// The settings path does not exist: if the output flag were checked
	// after settings load, the error would mention the settings file.
	cmd.SetArgs([]string{"sync", "--config", "/tmp/nonexistent-cissync-config.json", "-o", "jsno"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for invalid --output value")
	}
	if !strings.Contains(err.Error(), "must be json or table") {
		t.Errorf("expected --output validation error before settings load, got: %v", err)
	}
}

func TestHistoryCommand_Flags(t *testing.T) {
	hist, _, err := rootCmd.Find([]string{"history"})
	if err != nil {
		t.Fatalf("failed to find 'history' command: %v", err)
	}

	expectedFlags := []string{"config", "db", "limit", "run", "output"}
	for _, name := range expectedFlags {
		if hist.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag on 'history' command", name)
		}
	}
}

func TestPoliciesCommand_Flags(t *testing.T) {
	pol, _, err := rootCmd.Find([]string{"policies"})
	if err != nil {
		t.Fatalf("failed to find 'policies' command: %v", err)
	}

	expectedFlags := []string{"policies", "browse", "remote", "config"}
	for _, name := range expectedFlags {
		if pol.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag on 'policies' command", name)
		}
	}
}
