package cli

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/gateway"
	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review access requests (admin accounts only)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "pending",
			Short: "List accounts waiting for approval",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := a.client.Send(cmd.Context(), gateway.NewRequest(http.MethodGet, "/admin/access-requests"))
				if err != nil {
					return err
				}
				writeBody(cmd, resp.Body)
				return nil
			},
		},
		newUserActionCmd(a, "approve", "Approve a pending account"),
		newUserActionCmd(a, "suspend", "Suspend an account and revoke its sessions"),
	)
	return cmd
}

func newUserActionCmd(a *app, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			req := gateway.NewRequest(http.MethodPost, fmt.Sprintf("/admin/users/%d/%s", id, action))
			resp, err := a.client.Send(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s user %d: %w", action, id, err)
			}
			writeBody(cmd, resp.Body)
			return nil
		},
	}
}
