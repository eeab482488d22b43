// Command forgedeck is a terminal dashboard for code hosting services:
// pull requests, issues, commits and CI for the repositories you work in,
// aggregated across GitHub and Gitea accounts.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"forgedeck/internal/auth"
	"forgedeck/internal/cache"
	"forgedeck/internal/config"
	"forgedeck/internal/dispatch"
	"forgedeck/internal/forge"
	"forgedeck/internal/forge/gitea"
	"forgedeck/internal/forge/github"
	"forgedeck/internal/logging"
	"forgedeck/internal/tui"
)

var (
	flagForge string
	flagDebug bool
)

func main() {
	root := &cobra.Command{
		Use:   "forgedeck",
		Short: "Terminal dashboard for your forges",
		Long: "forgedeck shows pull requests, issues, commits and CI runs for\n" +
			"your repositories in the terminal, with a local cache so screens\n" +
			"open instantly and refresh in the background.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard()
		},
	}
	root.PersistentFlags().StringVarP(&flagForge, "forge", "f", "", "configured forge to use (default: detected from git remote)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(configCmd(), cacheCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runDashboard() error {
	cfg := config.Load()
	entry, err := selectForge(cfg)
	if err != nil {
		return err
	}

	token, err := auth.Token(entry)
	if err != nil {
		return err
	}

	log, closeLog := logging.New(flagDebug)
	defer closeLog()
	log.Info("starting",
		zap.String("forge", entry.Name),
		zap.String("host", entry.Host))

	registry := forge.NewRegistry()
	backend, err := buildBackend(entry, token)
	if err != nil {
		return err
	}
	registry.MustRegister(entry.Name, backend)

	cacheDir, err := config.CacheDir()
	if err != nil {
		return fmt.Errorf("resolve cache dir: %w", err)
	}
	ttls := cache.DefaultTTLs().Merge(cfg.TTLOverrides())
	manager := cache.NewManager(filepath.Join(cacheDir, "cache.db"), ttls, log)
	defer manager.Close()

	d := dispatch.New(registry, manager, log)
	return tui.Run(tui.New(entry.Name, registry, d, log))
}

func selectForge(cfg config.Config) (config.ForgeEntry, error) {
	if flagForge != "" {
		entry, ok := cfg.Entry(flagForge)
		if !ok {
			return config.ForgeEntry{}, fmt.Errorf("no forge named %q in config", flagForge)
		}
		return entry, nil
	}
	entry, ok := config.DetectForge(cfg)
	if !ok {
		return config.ForgeEntry{}, errors.New("no usable forge configured; run `forgedeck config init`")
	}
	return entry, nil
}

func buildBackend(entry config.ForgeEntry, token string) (forge.Forge, error) {
	switch entry.Type {
	case config.ForgeGitHub:
		return github.New(entry.Name, entry.Host, token), nil
	case config.ForgeGitea:
		return gitea.New(entry.Name, entry.Host, token), nil
	default:
		return nil, fmt.Errorf("unknown forge type %q", entry.Type)
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the forgedeck configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a commented example config if none exists",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.Path()
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists at %s", path)
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(config.ExampleYAML()), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.Path()
				if err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "explain",
			Short: "Show the resolved configuration and which forge would be used",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.Path()
				if err != nil {
					return err
				}
				if _, statErr := os.Stat(path); statErr == nil {
					fmt.Println("config file:", path)
				} else {
					fmt.Println("config file:", path, "(missing, using built-in defaults)")
				}

				cfg := config.Load()
				if cfg.General.DefaultForge != "" {
					fmt.Println("default forge:", cfg.General.DefaultForge)
				}
				for _, f := range cfg.Forges {
					fmt.Printf("forge %q: type=%s host=%s token=%s\n",
						f.Name, f.Type, f.Host, tokenSource(f))
				}

				entry, err := selectForge(cfg)
				if err != nil {
					return err
				}
				fmt.Println("selected:", entry.Name)
				return nil
			},
		},
	)
	return cmd
}

func tokenSource(f config.ForgeEntry) string {
	switch {
	case f.TokenEnv != "" && os.Getenv(f.TokenEnv) != "":
		return "$" + f.TokenEnv
	case f.TokenCommand != "":
		return fmt.Sprintf("command (%s)", f.TokenCommand)
	case f.TokenEnv != "":
		return "$" + f.TokenEnv + " (unset)"
	default:
		return "stored token file"
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cacheDir, err := config.CacheDir()
			if err != nil {
				return err
			}
			log, closeLog := logging.New(flagDebug)
			defer closeLog()
			manager := cache.NewManager(filepath.Join(cacheDir, "cache.db"), cache.DefaultTTLs(), log)
			defer manager.Close()
			manager.Purge()
			fmt.Println("cache purged")
			return nil
		},
	})
	return cmd
}
