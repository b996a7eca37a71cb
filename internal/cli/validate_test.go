package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func executeValidate(args ...string) (stdout, stderr string, err error) {
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd := rootCmd
	// validateCmd is package-level state; flag values persist across
	// Execute calls, so reset them to defaults between tests.
	_ = validateCmd.Flags().Set("settings-only", "false")
	_ = validateCmd.Flags().Set("policies", "")
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"validate"}, args...))
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeValidateFixtures(t *testing.T) (settingsPath string) {
	t.Helper()
	dir := t.TempDir()

	bundlePath := filepath.Join(dir, "cis_policies.json")
	bundleContent := `{
  "kubernetes_policies": [
    {"name": "CIS 1.1.1", "description": "d", "severity": "HIGH_SEVERITY"}
  ],
  "docker_policies": [],
  "runtime_policies": []
}`
	if err := os.WriteFile(bundlePath, []byte(bundleContent), 0o644); err != nil {
		t.Fatal(err)
	}

	settingsPath = filepath.Join(dir, "config.json")
	settingsContent := `{
  "rhacs": {"central_url": "https://central.example.com", "api_token": "tok"},
  "policies": {"config_file": ` + `"` + bundlePath + `"` + `}
}`
	if err := os.WriteFile(settingsPath, []byte(settingsContent), 0o644); err != nil {
		t.Fatal(err)
	}
	return settingsPath
}

func TestValidateCommand_Valid(t *testing.T) {
	settingsPath := writeValidateFixtures(t)

	stdout, _, err := executeValidate(settingsPath)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "settings OK") {
		t.Errorf("expected 'settings OK' in output, got: %q", stdout)
	}
	if !strings.Contains(stdout, "bundle OK (1 policies)") {
		t.Errorf("expected bundle count in output, got: %q", stdout)
	}
}

func TestValidateCommand_SettingsOnly(t *testing.T) {
	settingsPath := writeValidateFixtures(t)

	stdout, _, err := executeValidate(settingsPath, "--settings-only")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if strings.Contains(stdout, "bundle OK") {
		t.Errorf("expected bundle check to be skipped, got: %q", stdout)
	}
}

func TestValidateCommand_MissingURL(t *testing.T) {
	t.Setenv("ROX_API_TOKEN", "")
	content := `{"rhacs": {"api_token": "tok"}}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := executeValidate(path)
	if err == nil {
		t.Fatal("expected error for missing central_url")
	}
	if !strings.Contains(stderr, "central_url") {
		t.Errorf("expected 'central_url' in stderr, got: %q", stderr)
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, _, err := executeValidate("/tmp/nonexistent-cissync-config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateCommand_MissingBundle(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "config.json")
	content := `{
  "rhacs": {"central_url": "https://central.example.com", "api_token": "tok"},
  "policies": {"config_file": "` + filepath.Join(dir, "missing.json") + `"}
}`
	if err := os.WriteFile(settingsPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := executeValidate(settingsPath)
	if err == nil {
		t.Fatal("expected error for missing bundle file")
	}
}
