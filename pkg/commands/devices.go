package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/commands/options"
	"tableflip.dev/meshctl/pkg/runner/devices"
)

func addDevices(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	out := &options.OutputOptions{}
	onlineOnly := false

	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"peers", "ls"},
		Short:   "list devices on the mesh network",
		Example: `
meshctl devices
meshctl devices --online
meshctl devices --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			d := devices.Devices{
				Engine:     a.eng,
				ShowID:     io.ShowID,
				JSON:       out.JSON,
				OnlineOnly: onlineOnly,
			}
			err = d.Do(context.Background())
			return out.HandleError(err)
		},
	}

	cmd.Flags().BoolVar(&onlineOnly, "online", false, "Only show reachable devices.")
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, out)

	topLevel.AddCommand(cmd)
}
