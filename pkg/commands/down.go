package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/runner/down"
)

func addDown(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "disconnect from the mesh network",
		Example: `
meshctl down
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			d := down.Down{Engine: a.eng}
			return d.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}
