package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ccLee627/dacs7/internal/tag"
)

func newWriteCmd() *cobra.Command {
	conn := &connectFlags{}
	var tagAddr, value string

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a single value to a tag address",
		Example: `  dacsctl write --address 10.0.0.50:102 --tag "DB1.0,b" --value 0x01
  dacsctl write --address 10.0.0.50:102 --tag "M10.0,x" --value 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tagAddr == "" {
				return fmt.Errorf("--tag is required")
			}
			if value == "" {
				return fmt.Errorf("--value is required")
			}
			return runWrite(conn, tagAddr, value)
		},
	}

	conn.register(cmd.Flags())
	cmd.Flags().StringVar(&tagAddr, "tag", "", "tag address to write (required)")
	cmd.Flags().StringVar(&value, "value", "", "value to write, decimal or 0x-prefixed hex (required)")

	return cmd
}

// literalForType coerces a raw --value string into a Go value matching the
// type EncodeValue expects for it, so a single numeric flag can target any
// of the address grammar's type suffixes.
func literalForType(varType tag.VarType, raw string) (any, error) {
	if varType == tag.Bit {
		switch raw {
		case "1", "true", "on":
			return true, nil
		case "0", "false", "off":
			return false, nil
		default:
			return nil, fmt.Errorf("bit value must be one of 0,1,true,false,on,off, got %q", raw)
		}
	}

	if varType == tag.Float32 {
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid float value %q: %w", raw, err)
		}
		return float32(f), nil
	}

	if varType == tag.String {
		return raw, nil
	}

	n, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer value %q: %w", raw, err)
	}

	if varType == tag.Int32 {
		return int32(n), nil
	}
	if varType == tag.Char {
		return rune(n), nil
	}
	return int(n), nil
}

func runWrite(conn *connectFlags, tagAddr, value string) error {
	it, err := tag.Parse(tagAddr)
	if err != nil {
		return fmt.Errorf("invalid --tag %q: %w", tagAddr, err)
	}

	literal, err := literalForType(it.Type, value)
	if err != nil {
		return err
	}

	client, err := conn.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.WriteValue(context.Background(), tagAddr, literal); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	fmt.Printf("%s = %v (ok)\n", tagAddr, literal)
	return nil
}
