// ABOUTME: Tests for version command
// ABOUTME: Verifies the table and JSON output, SetVersion, and the keyword digest

package commands

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/harper/emergency-intake/internal/keywords"
)

func TestVersionCmd_Output(t *testing.T) {
	original := versionInfo
	defer func() { versionInfo = original }()

	SetVersion("1.2.3", "abc123", "2026-10-17")

	cmd := NewVersionCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{})
	cmd.SetErr(&output)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"Emergency Intake 1.2.3", "abc123", "2026-10-17", "Keywords: " + keywords.DefaultDigest()} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("output %q should contain %q", output.String(), want)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	original, originalFormat := versionInfo, outputFormat
	defer func() { versionInfo, outputFormat = original, originalFormat }()

	SetVersion("1.2.3", "abc123", "2026-10-17")
	outputFormat = "json"

	cmd := NewVersionCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got VersionInfo
	if err := json.Unmarshal(output.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, output.String())
	}
	if got.Version != "1.2.3" || got.Commit != "abc123" || got.GoVersion != runtime.Version() {
		t.Errorf("version info = %+v", got)
	}
}
