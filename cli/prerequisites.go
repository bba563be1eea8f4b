// Package cli locates the programs and files needed to launch tabby-agent.
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// MinNodeMajor is the oldest Node.js major version tabby-agent runs on.
const MinNodeMajor = 18

var (
	ErrNodeNotFound   = errors.New("node executable not found")
	ErrScriptNotFound = errors.New("tabby-agent script not found")
)

// Prerequisite is an executable the client depends on.
type Prerequisite struct {
	Name        string // command name looked up on PATH
	Path        string // explicit location; skips the PATH lookup when set
	Required    bool
	Description string
	InstallURL  string
}

// DefaultPrerequisites returns the executables the client needs. nodePath
// overrides the PATH lookup for node when non-empty.
func DefaultPrerequisites(nodePath string) []Prerequisite {
	return []Prerequisite{
		{
			Name:        "node",
			Path:        nodePath,
			Required:    true,
			Description: "Node.js runtime for tabby-agent",
			InstallURL:  "https://nodejs.org/en/download",
		},
	}
}

// CheckResult is the outcome of checking one prerequisite.
type CheckResult struct {
	Prerequisite Prerequisite
	Found        bool
	Path         string
	Version      string
	Error        error
}

// Check verifies that a prerequisite is present and records its version.
func Check(prereq Prerequisite) CheckResult {
	result := CheckResult{Prerequisite: prereq}

	path, err := lookExecutable(prereq)
	if err != nil {
		result.Error = err
		return result
	}

	result.Found = true
	result.Path = path
	result.Version = getVersion(path)
	return result
}

// CheckAll checks every prerequisite.
func CheckAll(prereqs []Prerequisite) []CheckResult {
	results := make([]CheckResult, len(prereqs))
	for i, prereq := range prereqs {
		results[i] = Check(prereq)
	}
	return results
}

// ValidateRequired returns an error listing every missing required
// prerequisite.
func ValidateRequired(prereqs []Prerequisite) error {
	var missing []string

	for _, prereq := range prereqs {
		if !prereq.Required {
			continue
		}
		if result := Check(prereq); !result.Found {
			missing = append(missing, fmt.Sprintf("  - %s (%s)\n    Install: %s",
				prereq.Name, prereq.Description, prereq.InstallURL))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required programs:\n%s", strings.Join(missing, "\n"))
	}
	return nil
}

func lookExecutable(prereq Prerequisite) (string, error) {
	if prereq.Path == "" {
		path, err := exec.LookPath(prereq.Name)
		if err != nil {
			return "", fmt.Errorf("%s not found in PATH", prereq.Name)
		}
		return path, nil
	}

	info, err := os.Stat(prereq.Path)
	if err != nil {
		return "", fmt.Errorf("%s not found at %s", prereq.Name, prereq.Path)
	}
	if info.IsDir() || info.Mode()&0111 == 0 {
		return "", fmt.Errorf("%s at %s is not executable", prereq.Name, prereq.Path)
	}
	return prereq.Path, nil
}

// getVersion returns the first line of `<path> --version`, or "" on failure.
func getVersion(path string) string {
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		return ""
	}
	version, _, _ := strings.Cut(string(output), "\n")
	version = strings.TrimSpace(version)
	if len(version) > 100 {
		version = version[:100] + "..."
	}
	return version
}

// NodeMajorVersion parses the major version out of `node --version` output
// such as "v20.11.1".
func NodeMajorVersion(version string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0, fmt.Errorf("unrecognized node version %q", version)
	}
	return n, nil
}

// FormatCheckResults renders check results for display.
func FormatCheckResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString("Prerequisites:\n")
	for _, r := range results {
		status := "✓"
		if !r.Found {
			if r.Prerequisite.Required {
				status = "✗"
			} else {
				status = "○"
			}
		}

		fmt.Fprintf(&sb, "  %s %s", status, r.Prerequisite.Name)
		if r.Found {
			if r.Version != "" {
				fmt.Fprintf(&sb, " (%s)", r.Version)
			}
			fmt.Fprintf(&sb, " %s", r.Path)
		} else if r.Prerequisite.Required {
			sb.WriteString(" [REQUIRED]")
		} else {
			sb.WriteString(" [optional]")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
