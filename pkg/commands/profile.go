package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/meshctl/pkg/commands/options"
	"tableflip.dev/meshctl/pkg/runner/profiles"
)

func addProfile(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "manage saved account profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	addProfileList(cmd)
	addProfileAdd(cmd)
	addProfileRemove(cmd)
	addProfileSwitch(cmd)

	topLevel.AddCommand(cmd)
}

func addProfileList(topLevel *cobra.Command) {
	out := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "list saved profiles",
		Example: `
meshctl profile list
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			l := profiles.List{
				Engine: a.eng,
				Store:  a.store,
				JSON:   out.JSON,
			}
			err = l.Do(context.Background())
			return out.HandleError(err)
		},
	}

	options.AddOutputArg(cmd, out)

	topLevel.AddCommand(cmd)
}

func addProfileAdd(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "add <nickname>",
		Short: "save a new profile nickname",
		Example: `
meshctl profile add work
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			p := profiles.Add{
				Store:    a.store,
				Nickname: args[0],
			}
			return p.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}

func addProfileRemove(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "remove <nickname>",
		Aliases: []string{"rm"},
		Short:   "delete a saved profile",
		Example: `
meshctl profile remove work
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			p := profiles.Remove{
				Store:    a.store,
				Nickname: args[0],
			}
			return p.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}

func addProfileSwitch(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "switch <nickname>",
		Short: "switch the daemon to a saved profile",
		Example: `
meshctl profile switch personal
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			s := profiles.Switch{
				Engine:   a.eng,
				Store:    a.store,
				Client:   a.client,
				Nickname: args[0],
			}
			return s.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}
