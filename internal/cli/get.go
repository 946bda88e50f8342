package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/gateway"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	var query []string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET to the API and print the body",
		Example: "  bdgdctl get /admin/access-requests\n" +
			"  bdgdctl get /mapa/clientes -q uf=SP -q limit=10",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			req := gateway.NewRequest(http.MethodGet, path)
			if len(query) > 0 {
				req.Query = url.Values{}
				for _, kv := range query {
					k, v, ok := strings.Cut(kv, "=")
					if !ok || k == "" {
						return fmt.Errorf("invalid query %q, want key=value", kv)
					}
					req.Query[k] = append(req.Query[k], v)
				}
			}
			resp, err := a.client.Send(cmd.Context(), req)
			if resp != nil {
				writeBody(cmd, resp.Body)
			}
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter key=value (repeatable)")
	return cmd
}

// writeBody pretty-prints JSON bodies and passes anything else through.
func writeBody(cmd *cobra.Command, body []byte) {
	if len(body) == 0 {
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, body, "", "  ") == nil {
		fmt.Fprintln(cmd.OutOrStdout(), buf.String())
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
}
