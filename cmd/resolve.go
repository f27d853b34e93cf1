package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type resolveOutput struct {
	Address        string   `json:"address"`
	IsProxy        bool     `json:"isProxy"`
	Implementation string   `json:"implementation,omitempty"`
	HasAbi         bool     `json:"hasAbi"`
	Functions      []string `json:"functions"`
	Events         []string `json:"events"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <address>",
	Short: "Follow an EIP-1967 proxy and show the ABI that decodes the contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		c, err := newComponents(ctx, false)
		if err != nil {
			return err
		}
		defer c.close()

		res, err := c.resolver.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		out := &resolveOutput{
			Address:   res.QueryAddress.Hex(),
			IsProxy:   res.IsProxy,
			HasAbi:    res.HasAbi(),
			Functions: make([]string, 0),
			Events:    make([]string, 0),
		}
		if res.IsProxy {
			out.Implementation = res.AbiAddress.Hex()
		}
		if res.HasAbi() && res.Abi.Abi != nil {
			for _, m := range res.Abi.Abi.Methods {
				out.Functions = append(out.Functions, m.Sig)
			}
			for _, e := range res.Abi.Abi.Events {
				out.Events = append(out.Events, e.Sig)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to write resolution: %w", err)
		}
		return nil
	},
}
