package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/genesis-map/genesis"
)

var (
	version = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "genesis-map",
	Short: "Turn songs into layered LED light shows",
	Long: `genesis-map analyses an audio file (tempo, beats, drops, key, chords,
song structure, emotion and optional stems) and composes the result into a
timed, layered list of LED effects.

Pipeline: audio → analysis → GenesisMap JSON → firmware effects`,
	Version:      version,
	SilenceUsage: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio-file>",
	Short: "Analyse an audio file and write its GenesisMap",
	Long: `Analyse an audio file and write its GenesisMap as JSON, optionally
exporting the composed effects for the LED firmware.

Examples:
  genesis-map analyze track.mp3
  genesis-map analyze track.wav -o track.json --effects-bin track.bin
  genesis-map analyze mix.flac --stems --max-effects 0 --config genesis.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis job server",
	Long: `Start the HTTP job server. Uploads are analysed in the background;
poll /status/{id} and fetch /result/{id} or /effects/{id}.bin when done.

Example:
  genesis-map serve --addr :8000 --config genesis.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "genesis-map %s (map format %s)\n", version, genesis.Version)
	},
}

var (
	// shared flags
	configPath string
	logLevel   string

	// analyze flags
	outputPath      string
	effectsBinPath  string
	effectsJSONPath string
	withStems       bool
	maxEffects      int
	quiet           bool

	// serve flags
	listenAddr string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "GenesisMap JSON output (default: <input>.genesis.json, '-' for stdout)")
	analyzeCmd.Flags().StringVar(&effectsBinPath, "effects-bin", "", "Write the packed binary effect export to this file")
	analyzeCmd.Flags().StringVar(&effectsJSONPath, "effects-json", "", "Write the firmware JSON effect export to this file")
	analyzeCmd.Flags().BoolVar(&withStems, "stems", false, "Separate stems with demucs (overrides the config)")
	analyzeCmd.Flags().IntVar(&maxEffects, "max-effects", -1, "Effects kept in the map, 0 keeps all (default: from config)")
	analyzeCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default: from config)")
}
