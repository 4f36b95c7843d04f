package main

import (
	"os"

	"inspectsync/internal/cli"

	"github.com/spf13/cobra"
)

func main() {
	command := NewInspectSyncCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewInspectSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspectsync [flags] [options]",
		Short: "inspectsync keeps vehicle inspection drafts offline and uploads them when the network returns.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdDraft())
	cmd.AddCommand(cli.NewCmdQueue())
	cmd.AddCommand(cli.NewCmdSubmit())
	cmd.AddCommand(cli.NewCmdFlush())
	cmd.AddCommand(cli.NewCmdProgress())
	cmd.AddCommand(cli.NewCmdWatch())
	cmd.AddCommand(cli.NewCmdHistory())
	cmd.AddCommand(cli.NewCmdToken())

	return cmd
}
