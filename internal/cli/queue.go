package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewCmdQueue() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect pending uploads.",
	}
	cmd.AddCommand(newCmdQueueList())
	cmd.AddCommand(newCmdQueueDrop())
	return cmd
}

type QueueListOptions struct {
	GlobalOptions
}

func newCmdQueueList() *cobra.Command {
	o := &QueueListOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued upload jobs in delivery order.",
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

func (o *QueueListOptions) Run(ctx context.Context, args []string) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, err := a.PendingJobs(ctx)
	if err != nil {
		return err
	}
	if o.Output == jsonFormat {
		return printJSON(os.Stdout, jobs)
	}

	w := newTabWriter(os.Stdout)
	fmt.Fprintln(w, "ID\tSELL_CAR_ID\tMODULE\tENQUEUED\tATTEMPTS\tLAST_ERROR")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", j.ID, j.EntityID, j.Module,
			j.EnqueuedAt.Format("2006-01-02 15:04:05"), j.Attempts, j.LastError)
	}
	return w.Flush()
}

type QueueDropOptions struct {
	GlobalOptions
}

func newCmdQueueDrop() *cobra.Command {
	o := &QueueDropOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "drop JOB_ID",
		Short: "Remove a queued job without uploading it.",
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

func (o *QueueDropOptions) Run(ctx context.Context, args []string) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.DropJob(ctx, args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("job %s not found", args[0])
	}
	fmt.Printf("job %s dropped\n", args[0])
	return nil
}
