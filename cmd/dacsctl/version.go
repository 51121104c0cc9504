package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccLee627/dacs7"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print dacsctl and library version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := dacs7.GetBuildInfo()
			fmt.Printf("dacsctl %s\n", dacs7.Version())
			fmt.Printf("  git commit: %s\n", info.GitCommit)
			fmt.Printf("  git tag:    %s\n", info.GitTag)
			fmt.Printf("  built:      %s\n", info.BuildTime)
			fmt.Printf("  go version: %s\n", info.GoVersion)
			fmt.Printf("  dirty:      %v\n", info.Dirty)
			return nil
		},
	}
}
