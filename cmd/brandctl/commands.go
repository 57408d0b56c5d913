package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-brand-navigator/internal/client"
	"github.com/pesio-ai/be-brand-navigator/internal/status"
)

type rootOptions struct {
	devMode bool
	addr    string
	userID  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "brandctl",
		Short:         "Inspect and drive the brand lifecycle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.devMode, "dev", false, "include dev-only stages in step numbering")
	root.PersistentFlags().StringVar(&opts.addr, "addr", "localhost:9090", "navigator gRPC address")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "acting user id sent with remote calls")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "remote call timeout")

	root.AddCommand(
		newRouteCmd(),
		newStepCmd(opts),
		newRevertTargetCmd(),
		newStepsCmd(opts),
		newNavCmd(opts),
		newProgressCmd(opts),
		newRevertCmd(opts),
	)
	return root
}

// =============================================================================
// LOCAL COMMANDS - lifecycle table lookups
// =============================================================================

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <brand-id> <status>",
		Short: "Print the wizard route for a brand in the given status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), status.RouteForStatus(args[0], status.BrandStatus(args[1])))
			return nil
		},
	}
}

func newStepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "step <status>",
		Short: "Print the progress step number for a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), status.StepNumberForStatus(status.BrandStatus(args[0]), opts.devMode))
			return nil
		},
	}
}

func newRevertTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert-target <step>",
		Short: "Print the status a revert to the given step lands on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.StatusForStepNumber(step))
			return nil
		},
	}
}

func newStepsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the stages shown in the progress display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tSTATUS\tTITLE\tREVERTIBLE")
			for _, st := range status.Visible(opts.devMode) {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n",
					status.StepNumberForStatus(st.Status, opts.devMode),
					st.Status, st.Title, status.IsRevertible(st.Status))
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// REMOTE COMMANDS - NavigatorService over gRPC
// =============================================================================

func (o *rootOptions) dial() (*client.NavigatorGRPCClient, error) {
	return client.NewNavigatorGRPCClient(o.addr, o.userID)
}

func (o *rootOptions) remote(cmd *cobra.Command, call func(ctx context.Context, c *client.NavigatorGRPCClient) (interface{}, error)) error {
	c, err := o.dial()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	out, err := call(ctx, c)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func newNavCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "nav <brand-id>",
		Short: "Show the current route and step of a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.remote(cmd, func(ctx context.Context, c *client.NavigatorGRPCClient) (interface{}, error) {
				return c.GetNavigation(ctx, args[0])
			})
		},
	}
}

func newProgressCmd(opts *rootOptions) *cobra.Command {
	var expected string
	cmd := &cobra.Command{
		Use:   "progress <brand-id>",
		Short: "Advance a brand to its next stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.remote(cmd, func(ctx context.Context, c *client.NavigatorGRPCClient) (interface{}, error) {
				return c.ProgressBrand(ctx, args[0], expected)
			})
		},
	}
	cmd.Flags().StringVar(&expected, "expect", "", "fail unless the brand is currently in this status")
	return cmd
}

func newRevertCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "revert <brand-id> <step>",
		Short: "Move a brand back to an earlier step, discarding later work",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step %q: %w", args[1], err)
			}
			if !yes {
				return fmt.Errorf("revert discards work after step %d; pass --yes to confirm", step)
			}
			return opts.remote(cmd, func(ctx context.Context, c *client.NavigatorGRPCClient) (interface{}, error) {
				return c.RevertBrand(ctx, args[0], step, true)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the revert")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
