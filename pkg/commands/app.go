package commands

import (
	"tableflip.dev/meshctl/pkg/config"
	"tableflip.dev/meshctl/pkg/daemon"
	"tableflip.dev/meshctl/pkg/engine"
	"tableflip.dev/meshctl/pkg/profile"
)

// app bundles the wired-up pieces every command needs: resolved config, the
// daemon client, the engine over it, and the profile store.
type app struct {
	cfg    *config.Config
	client *daemon.Client
	eng    *engine.Engine
	store  *profile.Store
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	client := daemon.NewClient(&daemon.CLI{
		Binary:  cfg.Binary,
		Timeout: cfg.Timeout,
	})

	eng := engine.New(client, engine.WithCache(engine.NewCache(cfg.CachePath())))

	store, err := profile.Open(cfg.ProfilesPath())
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, client: client, eng: eng, store: store}, nil
}
