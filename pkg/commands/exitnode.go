package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/runner/exitnode"
)

func addExitNode(topLevel *cobra.Command) {
	clearNode := false

	cmd := &cobra.Command{
		Use:     "exit-node [device]",
		Aliases: []string{"exitnode"},
		Short:   "list exit nodes or route traffic through one",
		Example: `
meshctl exit-node
meshctl exit-node nas
meshctl exit-node --clear
`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			e := exitnode.ExitNode{
				Engine: a.eng,
				Target: strings.Join(args, " "),
				Clear:  clearNode,
			}
			return e.Do(context.Background())
		},
	}

	cmd.Flags().BoolVar(&clearNode, "clear", false, "Stop routing through an exit node.")

	topLevel.AddCommand(cmd)
}
