package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/client"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/spf13/cobra"
)

// app is the state shared by the commands of one invocation.
type app struct {
	flagAPI         string
	flagStore       string
	flagSessionFile string
	flagLogLevel    string

	cfg    *config.Config
	client *client.Client
	nav    *hintNavigator
}

// NewRootCmd creates the root cobra command for the bdgdctl CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "bdgdctl",
		Short: "bdgdctl talks to the BDGD dashboard API with an authenticated session",
		Long: "bdgdctl logs in to the BDGD dashboard API, keeps the session (access and refresh " +
			"credentials) on disk or in Redis, MongoDB or MinIO, and sends authenticated requests that renew " +
			"expired credentials transparently.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return nil
			}
			return a.client.Close(context.WithoutCancel(cmd.Context()))
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.flagAPI, "api", "", "API base URL (default API_BASE_URL or http://localhost:8000/api/v1)")
	root.PersistentFlags().StringVar(&a.flagStore, "store", "", "session store: file, redis, mongo, minio or memory (default SESSION_STORE)")
	root.PersistentFlags().StringVar(&a.flagSessionFile, "session-file", "", "session file for --store file (default SESSION_FILE)")
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newRegisterCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newSessionCmd(a),
		newGetCmd(a),
		newAdminCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level := a.flagLogLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "warn"
	}
	logger.Init(level)
	logger.SetOutput(cmd.ErrOrStderr())

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	// flags win over the environment
	if a.flagAPI != "" {
		cfg.API.BaseURL = strings.TrimRight(a.flagAPI, "/")
	}
	if a.flagStore != "" {
		cfg.Session.Store = strings.ToLower(a.flagStore)
	}
	if a.flagSessionFile != "" {
		cfg.Session.File = a.flagSessionFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.nav = &hintNavigator{out: cmd.ErrOrStderr()}
	c, err := client.FromConfig(cmd.Context(), cfg, a.nav)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	a.client = c
	return nil
}

// hintNavigator turns a session expiry into a one-time re-login hint.
type hintNavigator struct {
	out     io.Writer
	mu      sync.Mutex
	atLogin bool
	once    sync.Once
}

func (n *hintNavigator) AtLoginSurface() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.atLogin
}

func (n *hintNavigator) enterLogin() {
	n.mu.Lock()
	n.atLogin = true
	n.mu.Unlock()
}

func (n *hintNavigator) RedirectToLogin() {
	n.once.Do(func() {
		fmt.Fprintln(n.out, "Your session has ended. Run `bdgdctl login` to sign in again.")
	})
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
