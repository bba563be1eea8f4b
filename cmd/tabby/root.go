package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zhubert/tabby-agent/agent"
	"github.com/zhubert/tabby-agent/cli"
	"github.com/zhubert/tabby-agent/config"
	"github.com/zhubert/tabby-agent/logger"
	"github.com/zhubert/tabby-agent/process"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

const (
	clientApp      = "tabby-cli"
	clientPluginID = "com.tabbyml.tabby-cli"
)

type globalFlags struct {
	ConfigPath string
	Debug      bool
}

var (
	flags globalFlags
	cfg   *config.Config
	runID string
)

var rootCmd = &cobra.Command{
	Use:           "tabby",
	Short:         "Command line client for tabby-agent",
	Long:          "tabby launches tabby-agent under node and talks to it over stdio to fetch completions, authenticate and report events.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if flags.ConfigPath != "" {
			cfg, err = config.LoadFile(flags.ConfigPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}

		runID = uuid.New().String()
		logger.SetDebug(flags.Debug || cfg.Debug)
		logPath, err := logger.RunLogPath(runID[:8])
		if err != nil {
			return err
		}
		return logger.InitWithOptions(logPath, logger.Options{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file (default: config.yaml in the tabby-client config directory)")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}

// session is a running agent process and the client talking to it.
type session struct {
	client *agent.Client
	proc   *process.Manager
}

// startSession launches the agent and initializes it with the configured
// agent settings.
func startSession(ctx context.Context) (*session, error) {
	log := logger.WithComponent("cli")

	launch, err := cli.LaunchConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	proc := process.NewManager(launch, process.Callbacks{
		OnExit: func(err error, stderr string) {
			if err != nil {
				log.Warn("agent exited", "error", err, "stderr", stderr)
			}
		},
	}, logger.WithComponent("process"))
	if err := proc.Start(ctx); err != nil {
		return nil, err
	}

	client := agent.New(proc, agent.Options{
		Logger:         logger.WithComponent("agent"),
		ClientID:       runID,
		RequestTimeout: cfg.RequestTimeout,
	})
	s := &session{client: client, proc: proc}

	ok, err := client.Initialize(ctx, cfg.AgentConfig(), agent.ClientIdentifier(clientApp, clientPluginID, version))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}
	if !ok {
		log.Warn("agent reported initialize failure")
	}
	return s, nil
}

// Close shuts down the client, which stops the agent process.
func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		logger.WithComponent("cli").Debug("error closing agent", "error", err)
	}
}
