package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cobra"
	"github.com/use-agent/rnp/models"
)

func init() {
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <ruc>",
	Short: "Runs a single registry lookup and prints the result as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.ConsultarRequest{RUC: args[0]}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			return errors.New(models.InvalidRUCMessage)
		}
		ruc := req.RUC

		cfg := load()
		// Logs go to stderr so stdout carries only the result.
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

		client, err := newClient(cfg, slog.Default())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.Registry.QueryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Registry.QueryTimeout)
			defer cancel()
		}

		res := client.Query(ctx, ruc)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !res.OK() {
			cmd.SilenceUsage = true
			return fmt.Errorf("%s: %s", res.Code, res.Error)
		}
		return nil
	},
}
