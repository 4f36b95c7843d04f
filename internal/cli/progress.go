package cli

import (
	"context"
	"fmt"
	"os"

	"inspectsync/internal/services/progress"

	"github.com/spf13/cobra"
)

type ProgressOptions struct {
	GlobalOptions
}

func NewCmdProgress() *cobra.Command {
	o := &ProgressOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "progress SELL_CAR_ID",
		Short: "Show the checklist progress of an inspection.",
		Args:  cobra.ExactArgs(1),
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

func (o *ProgressOptions) Run(ctx context.Context, args []string) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	a.Check(ctx)
	report := a.Checklist(ctx, args[0])
	if o.Output == jsonFormat {
		return printJSON(os.Stdout, report)
	}

	w := newTabWriter(os.Stdout)
	fmt.Fprintln(w, "MODULE\tPERCENT\tREQUIRED_LEFT\tOPTIONAL_LEFT\tSOURCE\tPENDING")
	for _, p := range append([]progress.ModuleProgress{report.Identity}, report.Modules...) {
		req, reqOK := p.RequiredRemaining()
		opt, optOK := p.OptionalRemaining()
		fmt.Fprintf(w, "%s\t%d%%\t%s\t%s\t%s\t%t\n", p.Module, p.Percent,
			remaining(req, reqOK), remaining(opt, optOK), p.Source, p.Pending)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if report.RemoteUnavailable {
		fmt.Println("server state unavailable, showing local progress only")
	}
	fmt.Printf("ready for submission: %t\n", report.Ready)
	return nil
}
