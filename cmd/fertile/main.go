package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fertile",
		Short: "fertile is a tool to grow decision-tree leaves from streaming data",
		Long:  `A tool to collect split statistics for decision-tree leaves from your data and decide when and how each leaf splits`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP((*bool)(&config.logger), "verbose", "v", false, "")
	rootCmd.AddCommand(versionCmd(), growCmd(config), slotCmd(config))
	return rootCmd
}
