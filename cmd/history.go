package cmd

import (
	"fmt"
	"log"

	"github.com/josephlewis42/bropesh/commands"
	"github.com/josephlewis42/bropesh/core/history"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var historyAsYAML bool

// HistoryReport is the machine readable form of the history file.
type HistoryReport struct {
	File    string   `json:"file"`
	Count   int      `json:"count"`
	Entries []string `json:"entries"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the saved command history.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := historyFile
		if path == "" {
			home, err := commands.HomeDir(log.New(cmd.ErrOrStderr(), cfg.ShellName+": ", 0))
			if err != nil {
				return err
			}
			path = cfg.HistoryPath(home)
		}

		ring := history.New(cfg.HistorySize)
		if err := ring.Load(osFs, path); err != nil {
			return err
		}
		entries := ring.Entries()
		if entries == nil {
			entries = []string{}
		}

		w := cmd.OutOrStdout()
		if historyAsYAML {
			out, err := yaml.Marshal(HistoryReport{File: path, Count: len(entries), Entries: entries})
			if err != nil {
				return err
			}
			fmt.Fprint(w, string(out))
			return nil
		}

		for i, line := range entries {
			fmt.Fprintf(w, "% 5d  %s\n", i+1, line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyAsYAML, "yaml", false, "print the history as YAML")
	rootCmd.AddCommand(historyCmd)
}
