package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jwulff/voicenotes/internal/config"
	"github.com/jwulff/voicenotes/internal/db"
	"github.com/jwulff/voicenotes/internal/logging"
	"github.com/jwulff/voicenotes/internal/mcpserver"
	"github.com/jwulff/voicenotes/internal/transcript"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newListCmd(cfgPath *string) *cobra.Command {
	var page, limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived transcripts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Archive.DBPath); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No archived transcripts.")
				return nil
			}

			store, err := db.OpenReadOnly(cfg.Archive.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.ListTranscripts(context.Background(), page, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if result.Total == 0 {
				fmt.Fprintln(out, "No archived transcripts.")
				return nil
			}
			for _, t := range result.Transcripts {
				fmt.Fprintf(out, "%s  %s  %s  %s\n",
					t.ID,
					t.CreatedAt.Local().Format("2006-01-02 15:04"),
					transcript.FormatElapsed(t.Duration),
					preview(t.Text, 60),
				)
			}
			fmt.Fprintf(out, "page %d of %d (%d total)\n", result.Page, result.Pages, result.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "Transcripts per page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newMCPCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the transcript archive as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			store, err := db.Open(cfg.Archive.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.WithField("db", cfg.Archive.DBPath).Info("mcp server starting")
			return mcpserver.Serve(store, version)
		},
	}
}

func newConfigCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", cfg.Paths.ConfigPath)
			_, err = out.Write(data)
			return err
		},
	}
}

// preview returns the first n runes of text on one line.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-1]) + "…"
}
