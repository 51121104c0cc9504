package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	conn := &connectFlags{}
	var registers []string

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read one or more tag addresses from a PLC",
		Example: `  dacsctl read --address 10.0.0.50:102 --register "DB1.0,b,10"
  dacsctl read --address 10.0.0.50:102 --register "M10.0,x" --register "DB1.4,dw"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(registers) == 0 {
				return fmt.Errorf("at least one --register is required")
			}
			return runRead(conn, registers)
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringArrayVar(&registers, "register", nil, "tag address to read (repeatable)")

	return cmd
}

func runRead(conn *connectFlags, registers []string) error {
	client, err := conn.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	values, err := client.Read(ctx, registers)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	for i, addr := range registers {
		fmt.Printf("%s = % X\n", addr, values[i])
	}
	return nil
}
