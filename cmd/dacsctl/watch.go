package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	conn := &connectFlags{}
	var registers []string
	var loops int
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repeatedly read tag addresses on an interval",
		Example: `  dacsctl watch --address 10.0.0.50:102 --register "DB1.0,dw" --loops 10 --wait 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(registers) == 0 {
				return fmt.Errorf("at least one --register is required")
			}
			return runWatch(conn, registers, loops, wait)
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringArrayVar(&registers, "register", nil, "tag address to read (repeatable)")
	cmd.Flags().IntVar(&loops, "loops", 0, "number of read cycles, 0 runs until interrupted")
	cmd.Flags().DurationVar(&wait, "wait", 500*time.Millisecond, "delay between read cycles")

	return cmd
}

func runWatch(conn *connectFlags, registers []string, loops int, wait time.Duration) error {
	client, err := conn.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	ticker := time.NewTicker(wait)
	defer ticker.Stop()

	for i := 0; loops == 0 || i < loops; i++ {
		values, err := client.Read(ctx, registers)
		if err != nil {
			fmt.Printf("[%s] read failed: %v\n", time.Now().Format("15:04:05.000"), err)
		} else {
			for j, addr := range registers {
				fmt.Printf("[%s] %s = % X\n", time.Now().Format("15:04:05.000"), addr, values[j])
			}
		}

		if loops != 0 && i == loops-1 {
			break
		}
		<-ticker.C
	}
	return nil
}
