// ABOUTME: Version command reporting the intake build and the keyword tables it ships with
// ABOUTME: Commit and date fall back to the Go toolchain's VCS stamp when not set at link time
package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/harper/emergency-intake/internal/keywords"
)

var versionInfo = VersionInfo{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
}

// VersionInfo describes the running intake binary
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"goVersion" yaml:"go_version"`
	Keywords  string `json:"keywords" yaml:"keywords"`
}

// SetVersion records link-time build information (called from main)
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// buildInfo completes versionInfo from the binary itself
func buildInfo() VersionInfo {
	info := versionInfo
	info.GoVersion = runtime.Version()
	info.Keywords = keywords.DefaultDigest()

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "none":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the intake version, commit, build date, Go toolchain, and the
digest of the embedded keyword tables. Deployments that override the tables
with INTAKE_KEYWORDS_FILE can compare against this digest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildInfo()
			out := cmd.OutOrStdout()

			format, err := resolveFormat("table")
			if err != nil {
				return err
			}
			switch format {
			case "json":
				return writeJSON(out, info)
			case "yaml":
				return writeYAML(out, info)
			}

			fmt.Fprintf(out, "Emergency Intake %s\n", info.Version)
			fmt.Fprintf(out, "Commit:   %s\n", info.Commit)
			fmt.Fprintf(out, "Built:    %s\n", info.Date)
			fmt.Fprintf(out, "Go:       %s\n", info.GoVersion)
			fmt.Fprintf(out, "Keywords: %s\n", info.Keywords)
			return nil
		},
	}
}
