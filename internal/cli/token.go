package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"inspectsync/internal/auth"

	"github.com/spf13/cobra"
)

func NewCmdToken() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API token kept in the OS keyring.",
	}
	cmd.AddCommand(newCmdTokenSet())
	cmd.AddCommand(newCmdTokenClear())
	return cmd
}

type TokenSetOptions struct {
	GlobalOptions
}

func newCmdTokenSet() *cobra.Command {
	o := &TokenSetOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "set [TOKEN]",
		Short: "Store the API token. Reads stdin when TOKEN is omitted.",
		Args:  cobra.MaximumNArgs(1),
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

func (o *TokenSetOptions) Run(ctx context.Context, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading token: %w", err)
		}
		token = line
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	if err := auth.StoreToken(token); err != nil {
		return err
	}
	fmt.Println("token stored")
	return nil
}

type TokenClearOptions struct {
	GlobalOptions
}

func newCmdTokenClear() *cobra.Command {
	o := &TokenClearOptions{GlobalOptions: DefaultGlobalOptions()}
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API token.",
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

func (o *TokenClearOptions) Run(ctx context.Context, args []string) error {
	if err := auth.DeleteToken(); err != nil {
		return err
	}
	fmt.Println("token removed")
	return nil
}
