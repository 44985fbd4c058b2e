package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/commands/options"
	"tableflip.dev/meshctl/pkg/runner/status"
)

func addStatus(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	out := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "show the mesh connection state",
		Example: `
meshctl status
meshctl status --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			s := status.Status{
				Engine: a.eng,
				ShowID: io.ShowID,
				JSON:   out.JSON,
			}
			err = s.Do(context.Background())
			return out.HandleError(err)
		},
	}

	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, out)

	topLevel.AddCommand(cmd)
}
