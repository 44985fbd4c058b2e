package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/runner/watch"
)

func addWatch(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "live full-screen view of the mesh network",
		Example: `
meshctl watch
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			w := watch.Watch{
				Engine:   a.eng,
				Interval: a.cfg.PollInterval,
			}
			return w.Do(cmd.Context())
		},
	}

	topLevel.AddCommand(cmd)
}
