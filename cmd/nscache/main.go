package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	namespace  string
	traceHooks bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nscache",
		Short:         "nscache - namespaced cache over pluggable backends",
		Long:          "Inspect and modify a namespaced cache stored on disk, in Redis or in process memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (toml, yaml or json); NSCACHE_* env vars override it")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Namespace (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&traceHooks, "trace-hooks", false, "Log cache hook events to stderr")

	rootCmd.AddCommand(
		getCmd(),
		setCmd(),
		deleteCmd(),
		containsCmd(),
		clearCmd(),
		flushCmd(),
		statsCmd(),
		pathCmd(),
		mgetCmd(),
		msetCmd(),
	)
	return rootCmd
}
