package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/josephlewis42/bropesh/commands"
	"github.com/josephlewis42/bropesh/core/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath     string
	historyFile string
	noColor     bool

	// osFs backs the configuration and history files.
	osFs = afero.NewOsFs()

	exitCode int
)

// loadConfig reads the configuration directory given by --config, or the
// built-in defaults if there isn't one.
func loadConfig() (*config.Configuration, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}

	configuration, err := config.Load(osFs, cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bropesh",
	Short: "A small interactive command interpreter",
	Long: `bropesh reads command lines, runs builtins and external programs with
input/output redirection and background execution, and keeps a short history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		color.NoColor = noColor || !cfg.Color || !term.IsTerminal(int(os.Stdout.Fd()))

		sh, err := commands.NewShell(commands.Options{
			Config:      cfg,
			Fs:          osFs,
			HistoryFile: historyFile,
		})
		if err != nil {
			return err
		}
		defer sh.Close()

		exitCode = sh.Run()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// It returns the process exit status.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory, built-in defaults if empty")
	rootCmd.PersistentFlags().StringVar(&historyFile, "history-file", "", "history file, overrides the configuration")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable the colored prompt")
}
