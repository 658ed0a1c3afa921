// Command lgctl is the applicant and administrator client of the indigene
// certificate portal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/portal/config"
	"github.com/lgcert/indigene-certificate/internal/portal/services"
	"github.com/lgcert/indigene-certificate/internal/portal/workflow"
	"github.com/lgcert/indigene-certificate/logger"
)

// environment is built once per invocation by the root command.
type environment struct {
	cfg      *config.Config
	log      *logger.Logger
	session  *apiclient.Session
	backend  services.Backend
	launcher workflow.Launcher

	backendName string
	apiURL      string
	sessionFile string
	verbose     bool
	noBrowser   bool
}

func (e *environment) setup(cmd *cobra.Command) error {
	if e.backend != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if e.backendName != "" {
		cfg.Backend = e.backendName
	}
	if e.apiURL != "" {
		cfg.APIURL = e.apiURL
	}
	if e.sessionFile != "" {
		cfg.SessionFile = e.sessionFile
	}
	level := cfg.LogLevel
	if e.verbose {
		level = "debug"
	}
	e.cfg = cfg
	e.log = logger.NewFromConfig(logger.Config{Level: level, Service: "lgctl", Pretty: true, Output: cmd.ErrOrStderr(), NoCaller: true})

	session, err := apiclient.NewSession(apiclient.FileStore{Path: cfg.SessionFile})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	e.session = session

	switch cfg.Backend {
	case config.BackendMock:
		m := services.NewMockBackend(cfg.MockLatency)
		m.Restore(session.User())
		e.backend = m
	case config.BackendHTTP:
		client := apiclient.New(session, apiclient.Options{
			BaseURL: cfg.APIURL,
			Timeout: cfg.Timeout,
			Log:     e.log,
			OnAuthFailure: func() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Your session has expired. Run `lgctl login` again.")
			},
		})
		e.backend = services.NewHTTPBackend(client)
	default:
		return fmt.Errorf("unknown backend %q (use %s or %s)", cfg.Backend, config.BackendHTTP, config.BackendMock)
	}
	return nil
}

func (e *environment) paymentLauncher(cmd *cobra.Command) workflow.Launcher {
	if e.launcher != nil {
		return e.launcher
	}
	if e.noBrowser {
		return workflow.LauncherFunc(func(url string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Open this page to pay: %s\n", url)
			return nil
		})
	}
	return workflow.BrowserLauncher{}
}

func newRootCommand(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:           "lgctl",
		Short:         "Apply for, pay for and verify local government indigene certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&env.backendName, "backend", "", "Backend to use: http or mock (default from LGCERT_BACKEND)")
	flags.StringVar(&env.apiURL, "api-url", "", "REST API base URL (default from LGCERT_API_URL)")
	flags.StringVar(&env.sessionFile, "session-file", "", "Where the login session is stored")
	flags.BoolVarP(&env.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&env.noBrowser, "no-browser", false, "Print the payment page instead of opening a browser")

	root.AddCommand(
		newLoginCommand(env),
		newLogoutCommand(env),
		newRegisterCommand(env),
		newWhoamiCommand(env),
		newApplyCommand(env),
		newDigitizeCommand(env),
		newPayCommand(env),
		newApplicationsCommand(env),
		newCertificatesCommand(env),
		newVerifyCommand(env),
		newLGAsCommand(env),
		newAdminCommand(env),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand(&environment{})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", workflow.Message(err))
		os.Exit(1)
	}
}

// pollInterval is how often --wait rechecks a pending payment.
var pollInterval = 3 * time.Second
