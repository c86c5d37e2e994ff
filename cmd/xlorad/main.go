package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath       string
	modelsDirFlag string
)

var rootCmd = &cobra.Command{
	Use:           "xlorad",
	Short:         "Chat completion server for X-LoRA adapter stacks over quantized GGUF models",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", envOr("XLORAD_CONFIG", ""), "config file (.yaml/.json/.toml)")
	rootCmd.PersistentFlags().StringVar(&modelsDirFlag, "models-dir", envOr("XLORAD_MODELS_DIR", ""), "directory scanned for *.gguf files")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
