package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/weaver/internal/config"
	"github.com/roach88/weaver/internal/passes"
	"github.com/roach88/weaver/internal/provider"
	"github.com/roach88/weaver/internal/source"
	"github.com/roach88/weaver/internal/store"
	"github.com/roach88/weaver/internal/weave"
)

// loadConfig reads --config, or weaver.yaml in the working directory when
// present. Without either the defaults are used.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.Config != "" {
		return config.Load(o.Config)
	}
	return config.LoadOrDefault(config.DefaultFile, false)
}

// providersFor lists the built-in provider followed by one provider per
// manifest file.
func providersFor(cfg *config.Config) ([]provider.Provider, error) {
	out := []provider.Provider{passes.Provider(cfg.Passes.Builtin())}
	if cfg.Manifests == "" {
		return out, nil
	}
	manifests, err := provider.FindManifests(cfg.Manifests)
	if err != nil {
		return nil, err
	}
	return append(out, manifests...), nil
}

// workspace is what every pipeline command starts from.
type workspace struct {
	cfg     *config.Config
	src     *source.Dirs
	session *weave.Session
}

// openWorkspace loads the configuration and links a session. The returned
// error is already reported through f and carries an exit code.
func (o *RootOptions) openWorkspace(cmd *cobra.Command, f *OutputFormatter) (*workspace, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	provs, err := providersFor(cfg)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "reading manifests", err)
	}

	src := source.NewDirs(cfg.Roots...)
	sess, err := weave.Open(weave.Options{
		Providers: provs,
		Source:    src,
		Platform:  cfg.Platform,
		Logger:    o.newLogger(cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeGraph, "pass graph", err)
	}

	for _, is := range sess.Issues {
		f.VerboseLog("loading issue: %s", is)
	}
	return &workspace{cfg: cfg, src: src, session: sess}, nil
}

// openStore opens the audit database named by flag, falling back to the
// configuration. An empty path returns a nil store.
func openStore(flag string, cfg *config.Config, f *OutputFormatter) (*store.Store, error) {
	path := flag
	if path == "" && cfg != nil {
		path = cfg.Database
	}
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database %s", path), err)
	}
	return st, nil
}
