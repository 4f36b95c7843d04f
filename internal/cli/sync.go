package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inspectsync/internal/api"
	"inspectsync/internal/services/syncworker"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type SubmitOptions struct {
	GlobalOptions

	Attachments []string

	attachments []api.Attachment
}

func NewCmdSubmit() *cobra.Command {
	o := &SubmitOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "submit SELL_CAR_ID MODULE",
		Short: "Upload the current draft of a module, queueing it when offline.",
		Args:  cobra.ExactArgs(2),
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

func (o *SubmitOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringArrayVar(&o.Attachments, "attach", nil, "Attach a file as FIELD=PATH[;CONTENT-TYPE]. Repeatable.")
}

func (o *SubmitOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if _, err := parseModule(args[1]); err != nil {
		return err
	}
	o.attachments = o.attachments[:0]
	for _, s := range o.Attachments {
		att, err := parseAttachment(s)
		if err != nil {
			return err
		}
		o.attachments = append(o.attachments, att)
	}
	return nil
}

func (o *SubmitOptions) Run(ctx context.Context, args []string) error {
	module, _ := parseModule(args[1])
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Check(ctx)
	outcome, err := a.Submit(ctx, args[0], module, o.attachments...)
	if err != nil {
		return err
	}
	fmt.Printf("%s/%s %s\n", args[0], module, outcome)
	return nil
}

type FlushOptions struct {
	GlobalOptions
}

func NewCmdFlush() *cobra.Command {
	o := &FlushOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Drain the upload queues now.",
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

func (o *FlushOptions) Run(ctx context.Context, args []string) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.Flush(ctx)
	if o.Output == jsonFormat {
		if perr := printJSON(os.Stdout, reports); perr != nil {
			return perr
		}
		return err
	}

	w := newTabWriter(os.Stdout)
	fmt.Fprintln(w, "QUEUE\tUPLOADED\tDEFERRED\tREJECTED\tEXHAUSTED")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", r.Queue,
			r.Count(syncworker.OutcomeUploaded), r.Count(syncworker.OutcomeDeferred),
			r.Count(syncworker.OutcomeRejected), r.Count(syncworker.OutcomeExhausted))
	}
	if werr := w.Flush(); werr != nil {
		return werr
	}

	failures := lo.FlatMap(reports, func(r *syncworker.Report, _ int) []syncworker.JobResult {
		return r.Failures()
	})
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "dropped %s/%s (job %s): %s\n", f.EntityID, f.Module, f.JobID, f.Error)
	}
	return err
}

type WatchOptions struct {
	GlobalOptions

	MetricsAddress string
}

func NewCmdWatch() *cobra.Command {
	o := &WatchOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the backend on schedule and upload queued work whenever it is reachable.",
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

func (o *WatchOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.MetricsAddress, "metrics-addr", "", "Serve Prometheus metrics on this address, overrides INSPECTSYNC_METRICS_ADDRESS.")
}

func (o *WatchOptions) Run(ctx context.Context, args []string) error {
	if o.MetricsAddress != "" {
		o.cfg.Metrics.Address = o.MetricsAddress
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	zap.S().Named("cli").Infow("watching for connectivity", "schedule", o.cfg.Sync.PollSchedule)
	return a.Run(ctx)
}
