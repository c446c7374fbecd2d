package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiwei-tsao/overlay-review/internal/business/imports"
	"github.com/weiwei-tsao/overlay-review/internal/platform/importapi"
	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

var errImportNotCompleted = errors.New("import did not complete")

func newWatchCmd() *cobra.Command {
	var (
		baseURL  string
		token    string
		interval time.Duration
		timeout  time.Duration
		output   string
	)

	cmd := &cobra.Command{
		Use:   "watch <importId>",
		Short: "Follow an import until it finishes",
		Long:  `Poll the import API for one import and print every observed status until it completes, fails or times out.`,
		Example: `  overlayctl watch imp-42 --base-url https://imports.internal/api --interval 2s --timeout 10m`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
			if baseURL == "" {
				return fmt.Errorf("--base-url (or IMPORT_API_BASE_URL) is required")
			}

			logger := cliLogger(cmd)
			client := importapi.New(nil, importapi.Config{BaseURL: baseURL, Token: token})
			poller := imports.NewPoller(client,
				imports.WithInterval(interval),
				imports.WithTimeout(timeout),
				imports.WithLogger(logger),
			)
			return watchImport(cmd, poller, args[0], format)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", envOr("IMPORT_API_BASE_URL", ""), "import API base URL")
	cmd.Flags().StringVar(&token, "token", envOr("IMPORT_API_TOKEN", ""), "bearer token for the import API")
	cmd.Flags().DurationVar(&interval, "interval", imports.DefaultInterval, "delay between status checks")
	cmd.Flags().DurationVar(&timeout, "timeout", imports.DefaultTimeout, "give up after this long")
	cmd.Flags().StringVarP(&output, "output", "o", string(FormatJSON), "output format (json or yaml)")
	return cmd
}

// watchImport prints updates as they arrive and returns once the session ends.
// A non-completed terminal state is reported as an error so the exit code reflects it.
func watchImport(cmd *cobra.Command, poller *imports.Poller, importID string, format Format) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	done := make(chan model.ImportStatus, 1)
	var writeErr error
	stop := poller.Start(ctx, importID, func(update model.ImportStatus) {
		if err := writeResult(out, format, update); err != nil && writeErr == nil {
			writeErr = err
		}
		if update.Status.IsTerminal() {
			done <- update
		}
	})
	defer stop()

	select {
	case final := <-done:
		if writeErr != nil {
			return writeErr
		}
		if final.Status != model.ImportCompleted {
			return fmt.Errorf("%w: %s", errImportNotCompleted, final.Status)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
