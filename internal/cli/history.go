package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type HistoryOptions struct {
	GlobalOptions

	Limit      int
	PruneOlder time.Duration
}

func NewCmdHistory() *cobra.Command {
	o := &HistoryOptions{GlobalOptions: DefaultGlobalOptions(), Limit: 20}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent drain passes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *HistoryOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.IntVar(&o.Limit, "limit", o.Limit, "Maximum number of passes to show.")
	fs.DurationVar(&o.PruneOlder, "prune-older-than", 0, "Delete passes older than this before listing.")
}

func (o *HistoryOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	if o.PruneOlder < 0 {
		return fmt.Errorf("--prune-older-than must not be negative")
	}
	return nil
}

func (o *HistoryOptions) Run(ctx context.Context, args []string) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	if o.PruneOlder > 0 {
		n, err := a.PruneRuns(ctx, time.Now().Add(-o.PruneOlder))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "pruned %d passes\n", n)
	}

	runs, err := a.RecentRuns(ctx, o.Limit)
	if err != nil {
		return err
	}
	if o.Output == jsonFormat {
		return printJSON(os.Stdout, runs)
	}

	w := newTabWriter(os.Stdout)
	fmt.Fprintln(w, "ID\tQUEUE\tTRIGGER\tSTATUS\tATTEMPTED\tUPLOADED\tREJECTED\tDEFERRED\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n", r.ID, r.Queue, r.Trigger, r.Status,
			r.Attempted, r.Uploaded, r.Rejected, r.Deferred, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
