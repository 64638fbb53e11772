package commands

import (
	"fmt"
	"time"

	"github.com/klokku/weekgrid/internal/config"
	"github.com/klokku/weekgrid/pkg/client"
	"github.com/klokku/weekgrid/pkg/store"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	apiURL     string
	verbose    bool
}

// session is one CLI invocation: a store loaded from the API with a printer subscribed
// to its outcomes.
type session struct {
	store  *store.Store
	client *client.Client
	print  *printer
}

// NewRootCmd builds the weekctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "weekctl",
		Short: "weekctl - plan your week from the terminal",
		Long: `weekctl edits a weekgrid calendar through its persistence API.

Every change is applied locally first and saved through the API. When the API
rejects a change it is undone and the failure is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "./config/application.yaml", "Path to the configuration file")
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "Base URL of the persistence API (overrides client.apiurl)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every request and store transition")

	root.AddCommand(
		newListCmd(opts),
		newUpcomingCmd(opts),
		newAddCmd(opts),
		newNewCmd(opts),
		newPlaceCmd(opts),
		newUnscheduleCmd(opts),
		newResizeCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

// Execute runs the command tree. This is called by main.main().
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		newPrinter(root.OutOrStdout(), root.ErrOrStderr()).failure(err)
	}
	return err
}

func (o *rootOptions) client() (*client.Client, config.Client, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, config.Client{}, fmt.Errorf("could not load configuration: %w", err)
	}
	apiURL := cfg.Client.ApiUrl
	if o.apiURL != "" {
		apiURL = o.apiURL
	}
	timeout := time.Duration(cfg.Client.TimeoutSec) * time.Second
	return client.New(apiURL, timeout), cfg.Client, nil
}

func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	c, cfg, err := o.client()
	if err != nil {
		return nil, err
	}
	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	s := store.New(c, store.WithConcurrency(cfg.Concurrency))
	store.Subscribe(s.Bus(), p)
	if err := s.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return &session{store: s, client: c, print: p}, nil
}
