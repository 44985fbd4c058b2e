package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/runner/up"
)

func addUp(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "connect to the mesh network",
		Example: `
meshctl up
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			u := up.Up{Engine: a.eng}
			return u.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}
