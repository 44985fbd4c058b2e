package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
)

var (
	oo = &base.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "meshctl",
		Short: base.Wrap80("Supervise the local mesh network daemon."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addStatus(topLevel)
	addUp(topLevel)
	addDown(topLevel)
	addDevices(topLevel)
	addExitNode(topLevel)
	addProfile(topLevel)
	addWatch(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
}
