package main

import (
	"fmt"
	"os"

	"github.com/jwulff/voicenotes/internal/app"
	"github.com/jwulff/voicenotes/internal/config"
	"github.com/jwulff/voicenotes/internal/logging"
	"github.com/jwulff/voicenotes/internal/recognizer"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "voicenotes",
		Short: "Voicenotes: terminal voice notes with live transcription",
		Long: `Voicenotes records meeting notes from your microphone through a local
steno-compatible speech daemon and shows the live transcript next to a chat panel.

Keys:
  Space   start/stop recording      c   clear transcript
  e       export transcript         p   cycle persona
  Tab     switch chat/transcript    q   quit

Env overrides: VOICENOTES_SOCKET, VOICENOTES_LOCALE, VOICENOTES_EXPORT_DIR,
               VOICENOTES_LOG_LEVEL/FORMAT, VOICENOTES_ARCHIVE_ENABLED`,
		Example: `  voicenotes
  voicenotes list --page 2 --limit 5
  voicenotes list --json
  voicenotes mcp
  voicenotes config`,
		SilenceUsage: true,
	}

	root.Version = version
	root.SetVersionTemplate("Voicenotes v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/voicenotes/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runTUI(*cfgPath)
	}

	root.AddCommand(newListCmd(cfgPath))
	root.AddCommand(newMCPCmd(cfgPath))
	root.AddCommand(newConfigCmd(cfgPath))

	return root.Execute()
}

func runTUI(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return err
	}
	logger.WithField("socket", cfg.Recognizer.SocketPath).Info("voicenotes starting")

	provider := recognizer.DaemonProvider{SocketPath: cfg.Recognizer.SocketPath}
	p := tea.NewProgram(app.New(provider, cfg, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	logger.Info("voicenotes exited")
	return nil
}
