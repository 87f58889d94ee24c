// fabricctl cli
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fabricops/fabricctl/pkg/auth"
	"github.com/fabricops/fabricctl/pkg/client"
	"github.com/fabricops/fabricctl/pkg/engine"
	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/fabricops/fabricctl/pkg/providers"
	"github.com/fabricops/fabricctl/pkg/static"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

type State struct {
	configPath  string
	baseURL     string
	logLevel    string
	metricsPath string
	paramsList  []string

	config *models.Configuration
	tokens oauth2.TokenSource
	client *client.Client
}

var state State

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("github.com/fabricops/fabricctl@%s (%s)\n", static.Version, static.Commit)
	},
}

func prepare(cmd *cobra.Command, args []string) error {
	return state.prepare(cmd.Context())
}

var stdout io.Writer = os.Stdout

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fabricctl",
		Long:          `fabricctl: Microsoft Fabric REST API toolbox`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(workspacesCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(capacitiesCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(environmentsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(schedulesCmd)
	rootCmd.AddCommand(operationsCmd)
	rootCmd.AddCommand(migrateCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&state.configPath,
		"config", "c", os.Getenv("FABRICCTL_CONFIG"),
		"Path to the configuration file, defaults to ~/.fabricctl.yaml (env: FABRICCTL_CONFIG)")
	flags.StringVar(&state.baseURL,
		"base-url", "",
		"Override the Fabric API address, e.g. http://localhost:3502/v1")
	flags.StringVar(&state.logLevel,
		"log-level", "",
		"Log level (debug, info, warn, error)")
	flags.StringVar(&state.metricsPath,
		"metrics-textfile", "",
		"Write request metrics in the Prometheus text format to this file on exit")
	flags.StringArrayVarP(&state.paramsList,
		"param", "p", nil,
		"Parameter name=value passed to the guard policy")

	return rootCmd
}

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	err := newRootCmd().ExecuteContext(context.Background())
	if state.metricsPath != "" {
		if werr := prometheus.WriteToTextfile(state.metricsPath, prometheus.DefaultGatherer); werr != nil {
			log.Warn().Err(werr).Str("path", state.metricsPath).Msg("failed to write metrics")
		}
	}
	if err != nil {
		log.Error().Err(err).Send()
		os.Exit(1)
	}
}

// Load configuration, credentials and the guard policy
func (s *State) prepare(ctx context.Context) error {
	cfg, err := s.loadConfiguration()
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	log.Logger = log.Logger.Level(level)
	s.config = cfg

	resolver := providers.NewResolver().WithDefaultProviders()
	s.tokens, err = auth.NewTokenSource(ctx, cfg, resolver, nil)
	if err != nil {
		return err
	}
	s.client = client.NewClientFromConfig(cfg, s.tokens)

	if cfg.Policy == "" {
		return nil
	}
	guard := engine.NewEngine(cfg.Policy)
	guard.Params, err = s.params()
	if err != nil {
		return err
	}
	if err := guard.Compile(ctx); err != nil {
		return fmt.Errorf("failed to compile policy: %w", err)
	}
	if token, err := s.tokens.Token(); err == nil {
		if claims, err := auth.ParseClaims(token.AccessToken); err == nil {
			guard.Identity = claims.Identity()
		}
	}
	s.client.Authorizer = guard
	return nil
}

func (s *State) loadConfiguration() (*models.Configuration, error) {
	path := s.configPath
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return models.NewConfiguration(), nil
		}
		path = filepath.Join(home, ".fabricctl.yaml")
	}

	cfg, err := models.ReadConfiguration(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		log.Debug().Str("path", path).Msg("no configuration file, using defaults")
		return models.NewConfiguration(), nil
	}
	return cfg, err
}

func (s *State) params() (map[string]any, error) {
	params := map[string]any{}
	for _, param := range s.paramsList {
		parts := strings.SplitN(param, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid param: %s", param)
		}
		params[parts[0]] = parts[1]
	}
	return params, nil
}

// Workspace id for an id or a display name
func (s *State) workspaceID(ctx context.Context, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return ref, nil
	}
	ws, err := s.client.FindWorkspace(ctx, ref)
	if err != nil {
		return "", err
	}
	return ws.ID, nil
}

// Item id for an id or a display name, optionally of one type
func (s *State) itemID(ctx context.Context, workspaceID, itemType, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return ref, nil
	}
	item, err := s.client.FindItem(ctx, workspaceID, itemType, ref)
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func requireID(name, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%s: %q is not a valid id", name, value)
	}
	return nil
}

func output(v any) error {
	return models.JSONEncoder(stdout).Encode(v)
}
