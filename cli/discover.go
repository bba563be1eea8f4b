package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zhubert/tabby-agent/config"
	"github.com/zhubert/tabby-agent/paths"
	"github.com/zhubert/tabby-agent/process"
)

// FindNode returns the node executable to run the agent with. An explicit
// nodePath must exist; otherwise node is looked up on PATH.
func FindNode(nodePath string) (string, error) {
	result := Check(DefaultPrerequisites(nodePath)[0])
	if !result.Found {
		return "", fmt.Errorf("%w: %v", ErrNodeNotFound, result.Error)
	}
	return result.Path, nil
}

// FindAgentScript returns the tabby-agent.js to run. An explicit scriptPath
// must exist; otherwise the copy under the data directory is used.
func FindAgentScript(scriptPath string) (string, error) {
	if scriptPath == "" {
		def, err := paths.AgentScriptPath()
		if err != nil {
			return "", err
		}
		scriptPath = def
	}

	info, err := os.Stat(scriptPath)
	if err != nil {
		return "", fmt.Errorf("%w at %s", ErrScriptNotFound, scriptPath)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrScriptNotFound, scriptPath)
	}
	return scriptPath, nil
}

// LaunchConfig resolves node and the agent script from cfg. A missing node
// or script is fatal. An old node version is only logged.
func LaunchConfig(cfg *config.Config, log *slog.Logger) (process.Config, error) {
	node, err := FindNode(cfg.NodePath)
	if err != nil {
		log.Error("node bin not found", "error", err)
		return process.Config{}, err
	}
	log.Info("node bin path", "path", node)

	script, err := FindAgentScript(cfg.ScriptPath)
	if err != nil {
		log.Error("node script not found", "error", err)
		return process.Config{}, err
	}
	log.Info("node script path", "path", script)

	if version := getVersion(node); version != "" {
		if major, err := NodeMajorVersion(version); err != nil {
			log.Warn("could not parse node version", "version", version)
		} else if major < MinNodeMajor {
			log.Warn("node version may be too old for tabby-agent", "version", version, "minimum", MinNodeMajor)
		}
	}

	return process.Config{
		Command:     node,
		Script:      script,
		StopTimeout: cfg.StopTimeout,
	}, nil
}
