package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in fertile's version
	VersionMajor = 0
	// VersionMinor is the minor number in fertile's version
	VersionMinor = 0
	// VersionPatch is the patch number in fertile's version
	VersionPatch = 1
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fertile",
		Long:  `All software has versions. This is fertile's`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fertile v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
