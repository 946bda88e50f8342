package cli

import (
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/gateway"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/tokens"
	"github.com/spf13/cobra"
)

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch the current identity from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.client.Store.FetchIdentity(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), id)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the approval status and role reported by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Send(cmd.Context(), gateway.NewRequest("GET", gateway.PathStatus))
			if err != nil {
				return err
			}
			var st map[string]interface{}
			if err := resp.Decode(&st); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

// sessionView is what `bdgdctl session` prints; credentials themselves are never shown.
type sessionView struct {
	Store         string     `json:"store"`
	Authenticated bool       `json:"authenticated"`
	Authorized    bool       `json:"authorized"`
	Email         string     `json:"email,omitempty"`
	Role          string     `json:"role,omitempty"`
	Status        string     `json:"status,omitempty"`
	HasRefresh    bool       `json:"has_refresh_credential"`
	AccessExpires *time.Time `json:"access_expires_at,omitempty"`
}

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the locally stored session without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.client.Store.Snapshot()
			v := sessionView{
				Store:         a.cfg.Session.Store,
				Authenticated: s.Authenticated,
				Authorized:    a.client.Store.Authorized(),
				HasRefresh:    s.RefreshCredential != "",
			}
			if s.Identity != nil {
				v.Email = s.Identity.Email
				v.Role = string(s.Identity.Role)
				v.Status = string(s.Identity.Status)
			}
			if s.AccessCredential != "" {
				if exp, err := tokens.ExpiresAt(s.AccessCredential); err == nil {
					v.AccessExpires = &exp
				}
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
}
