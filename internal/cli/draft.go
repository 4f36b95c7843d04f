package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func NewCmdDraft() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Read and write locally stored module drafts.",
	}
	cmd.AddCommand(newCmdDraftGet())
	cmd.AddCommand(newCmdDraftSave())
	cmd.AddCommand(newCmdDraftClear())
	cmd.AddCommand(newCmdDraftList())
	return cmd
}

type DraftGetOptions struct {
	GlobalOptions

	Hydrate bool
}

func newCmdDraftGet() *cobra.Command {
	o := &DraftGetOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "get SELL_CAR_ID MODULE",
		Short: "Print the draft of one module.",
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

func (o *DraftGetOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.BoolVar(&o.Hydrate, "hydrate", false, "Fill empty fields from the server copy of the inspection.")
}

func (o *DraftGetOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	_, err := parseModule(args[1])
	return err
}

func (o *DraftGetOptions) Run(ctx context.Context, args []string) error {
	module, _ := parseModule(args[1])
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	if o.Hydrate {
		form, err := a.Hydrate(ctx, args[0], module)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: server copy unavailable: %v\n", err)
		}
		return printJSON(os.Stdout, form)
	}

	d, ok, err := a.LoadDraft(ctx, args[0], module)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no draft for %s/%s", args[0], module)
	}
	if o.Output == jsonFormat {
		return printJSON(os.Stdout, d)
	}

	w := newTabWriter(os.Stdout)
	fmt.Fprintf(w, "STATUS\t%s\n", d.Status)
	fmt.Fprintf(w, "UPDATED\t%s\n", d.UpdatedAt.Format("2006-01-02 15:04:05"))
	if err := w.Flush(); err != nil {
		return err
	}
	return printJSON(os.Stdout, json.RawMessage(d.Payload))
}

type DraftSaveOptions struct {
	GlobalOptions

	Data string
	File string
}

func newCmdDraftSave() *cobra.Command {
	o := &DraftSaveOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "save SELL_CAR_ID MODULE",
		Short: "Replace the draft of one module.",
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

func (o *DraftSaveOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	fs.StringVar(&o.Data, "data", "", "Form payload as a JSON object.")
	fs.StringVarP(&o.File, "file", "f", "", "Read the form payload from a file, - for stdin.")
}

func (o *DraftSaveOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	_, err := parseModule(args[1])
	return err
}

func (o *DraftSaveOptions) Run(ctx context.Context, args []string) error {
	module, _ := parseModule(args[1])
	payload, err := readPayload(o.Data, o.File)
	if err != nil {
		return err
	}

	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.SaveDraft(ctx, args[0], module, payload); err != nil {
		return err
	}
	fmt.Printf("draft %s/%s saved\n", args[0], module)
	return nil
}

type DraftClearOptions struct {
	GlobalOptions
}

func newCmdDraftClear() *cobra.Command {
	o := &DraftClearOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "clear SELL_CAR_ID MODULE",
		Short: "Delete the draft of one module.",
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

func (o *DraftClearOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	_, err := parseModule(args[1])
	return err
}

func (o *DraftClearOptions) Run(ctx context.Context, args []string) error {
	module, _ := parseModule(args[1])
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ClearDraft(ctx, args[0], module); err != nil {
		return err
	}
	fmt.Printf("draft %s/%s cleared\n", args[0], module)
	return nil
}

type DraftListOptions struct {
	GlobalOptions
}

func newCmdDraftList() *cobra.Command {
	o := &DraftListOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored drafts.",
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

func (o *DraftListOptions) Run(ctx context.Context, args []string) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	defer a.Close()

	refs, err := a.ListDrafts(ctx)
	if err != nil {
		return err
	}
	if o.Output == jsonFormat {
		return printJSON(os.Stdout, refs)
	}

	w := newTabWriter(os.Stdout)
	fmt.Fprintln(w, "SELL_CAR_ID\tMODULE")
	for _, r := range refs {
		fmt.Fprintf(w, "%s\t%s\n", r.EntityID, r.Module)
	}
	return w.Flush()
}
