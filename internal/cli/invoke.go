package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cadbridge/internal/receiver"
	"github.com/roach88/cadbridge/internal/wire"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args    string
	URL     string
	Timeout time.Duration
}

// DefaultURL is where invoke sends envelopes unless --url is given.
const DefaultURL = "http://127.0.0.1:8765" + receiver.DefaultPath

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Send one envelope to a running bridge",
		Long: `Send one {action, args} envelope to a running bridge and print the response.

Exit codes:
  0 - ok=true
  1 - ok=false
  2 - Command error (bad --args, bridge unreachable)

Examples:
  cadbridge invoke levels.list
  cadbridge invoke level.create --args '{"name":"Roof","elevation_m":9}'
  cadbridge invoke params.get --args '{"elementIds":[11],"paramNames":["Comments"]}' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as JSON")
	cmd.Flags().StringVar(&opts.URL, "url", DefaultURL, "bridge endpoint")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	return cmd
}

func invokeAction(opts *InvokeOptions, action string, cmd *cobra.Command) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(opts.Args), &args); err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	body, err := json.Marshal(wire.Envelope{Action: action, Args: json.RawMessage(opts.Args)})
	if err != nil {
		return WrapExitError(ExitCommandError, "encode envelope", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()

	out := opts.formatter(cmd)
	out.VerboseLog("POST %s %s", opts.URL, body)

	resp, jobID, status, err := postEnvelope(ctx, opts.URL, body)
	if err != nil {
		return WrapExitError(ExitCommandError, "request failed", err)
	}
	out.VerboseLog("HTTP %d job=%s", status, jobID)

	if err := out.Print(Report{Response: resp, JobID: jobID, HTTPStatus: status}); err != nil {
		return err
	}
	if !resp.OK {
		return NewExitError(ExitFailure, resp.Message)
	}
	return nil
}

// postEnvelope sends body and decodes the bridge response.
func postEnvelope(ctx context.Context, url string, body []byte) (wire.Response, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return wire.Response{}, "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return wire.Response{}, "", 0, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return wire.Response{}, "", res.StatusCode, fmt.Errorf("read response: %w", err)
	}
	var resp wire.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return wire.Response{}, "", res.StatusCode, fmt.Errorf("HTTP %d: response is not an envelope: %w", res.StatusCode, err)
	}
	return resp, res.Header.Get(receiver.JobHeader), res.StatusCode, nil
}
