package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dacsctl",
		Short: "Command-line client for Siemens S7 PLCs",
		Long: `dacsctl is a reference command-line client built on the dacs7 library.

It connects to a PLC over ISO-on-TCP and reads or writes tag addresses using
the area.offset,type,count grammar (e.g. DB1.0,b,10, M10.0,x, Q5,dw).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newWriteCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
