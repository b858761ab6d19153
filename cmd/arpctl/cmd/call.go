package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authpipe"
	"github.com/spf13/cobra"
)

type callOutput struct {
	Code      int         `json:"code" yaml:"code"`
	Message   string      `json:"message,omitempty" yaml:"message,omitempty"`
	RequestID string      `json:"request_id" yaml:"request_id"`
	Data      any         `json:"data" yaml:"data"`
	Page      *pageOutput `json:"page,omitempty" yaml:"page,omitempty"`
}

type pageOutput struct {
	Total    int64 `json:"total" yaml:"total"`
	Current  int64 `json:"current" yaml:"current"`
	PageSize int64 `json:"page_size" yaml:"page_size"`
}

type errorOutput struct {
	Kind       string `json:"kind" yaml:"kind"`
	Message    string `json:"message" yaml:"message"`
	HTTPStatus int    `json:"http_status,omitempty" yaml:"http_status,omitempty"`
	Code       int    `json:"code,omitempty" yaml:"code,omitempty"`
	RequestID  string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

func newCallCmd(a *app) *cobra.Command {
	var (
		params  []string
		headers []string
		data    string
	)

	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send one call and print the response envelope",
		Example: `  arpctl call GET /movie/list --param page=1
  arpctl call POST /movie/add --data '{"title":"Heat"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := authpipe.CallSpec{Method: args[0], Path: args[1]}

			var err error
			if spec.Params, err = parsePairs(params); err != nil {
				return err
			}
			if spec.Headers, err = parsePairs(headers); err != nil {
				return err
			}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				spec.Body = json.RawMessage(data)
			}

			client, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := client.Send(cmd.Context(), spec)
			if err != nil {
				var e *authpipe.Error
				if errors.As(err, &e) {
					_ = a.print(cmd.OutOrStdout(), errorOutput{
						Kind:       e.Kind.String(),
						Message:    e.Message,
						HTTPStatus: e.HTTPStatus,
						Code:       e.Code,
						RequestID:  e.RequestID,
					})
				}
				return err
			}
			return a.print(cmd.OutOrStdout(), toCallOutput(resp))
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header key=value (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			token, err := client.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed, access token %s\n", maskToken(token))
			return nil
		},
	}
}

func toCallOutput(resp *authpipe.Response) callOutput {
	out := callOutput{
		Code:      resp.Code,
		Message:   resp.Message,
		RequestID: resp.RequestID,
	}
	if resp.Page != nil {
		out.Page = &pageOutput{Total: resp.Page.Total, Current: resp.Page.Current, PageSize: resp.Page.PageSize}
		var items any
		if err := json.Unmarshal(resp.Page.Items, &items); err == nil {
			out.Data = items
		}
		return out
	}
	var data any
	if err := resp.Decode(&data); err == nil {
		out.Data = data
	}
	return out
}

func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}
