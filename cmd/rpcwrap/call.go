package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mnehpets/rpcwrap/client"
)

// styles renders call output. Colours are dropped when w is not a terminal.
type styles struct {
	ok, failed, muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		ok:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#02BF87"}).Bold(true),
		failed: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FE5F86", Dark: "#FE5F86"}).Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9E9E9E", Dark: "#BDBDBD"}),
	}
}

func newCallCmd(g *globals) *cobra.Command {
	var (
		url     string
		addr    string
		method  string
		params  string
		id      string
		notify  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "call [payload]",
		Short: "Send a payload to a running server and print the reply",
		Long:  longCall,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" && addr != "" {
				return errors.New("--url and --addr are mutually exclusive")
			}
			if (len(args) == 1) == (method != "") {
				return errors.New("give either a payload argument or --method")
			}

			var payload []byte
			if len(args) == 1 {
				payload = []byte(args[0])
			} else {
				var err error
				payload, err = buildRequest(method, params, id, notify)
				if err != nil {
					return err
				}
			}

			var sender client.Sender
			if addr != "" {
				tc := client.NewTCPClient(addr)
				tc.Timeout = timeout
				sender = tc
			} else {
				if url == "" {
					cfg, err := g.load()
					if err != nil {
						return err
					}
					url = "http://" + cfg.Addr() + cfg.Path
				}
				hc := client.NewHTTPClient(url)
				hc.Client = &http.Client{Timeout: timeout}
				sender = hc
			}

			reply, err := sender.Send(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printReply(cmd.OutOrStdout(), reply)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "HTTP endpoint URL (default from RPC_HOST, RPC_PORT and RPC_PATH)")
	cmd.Flags().StringVar(&addr, "addr", "", "TCP server address; selects the TCP transport")
	cmd.Flags().StringVarP(&method, "method", "m", "", "method to call instead of a raw payload")
	cmd.Flags().StringVar(&params, "params", "", "params as JSON, used with --method")
	cmd.Flags().StringVar(&id, "id", "1", "request id, used with --method")
	cmd.Flags().BoolVar(&notify, "notify", false, "send --method as a notification")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout for the whole exchange")
	return cmd
}

// buildRequest encodes a single request. params must be a JSON array or
// object when set.
func buildRequest(method, params, id string, notify bool) ([]byte, error) {
	var p any
	if params != "" {
		raw := json.RawMessage(params)
		if !json.Valid(raw) {
			return nil, fmt.Errorf("--params is not valid JSON: %s", params)
		}
		p = raw
	}
	var reqID any
	if !notify {
		reqID = id
	}
	return json.Marshal(client.NewRequest(method, p, reqID))
}

// printReply writes the reply indented, after a status line.
func printReply(w io.Writer, reply []byte) error {
	st := newStyles(w)
	reply = bytes.TrimSpace(reply)
	if len(reply) == 0 {
		_, err := fmt.Fprintln(w, st.muted.Render("no reply"))
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, reply, "", "  "); err != nil {
		return fmt.Errorf("reply is not JSON: %w", err)
	}
	status := st.ok.Render("ok")
	if hasError(reply) {
		status = st.failed.Render("error")
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", status, buf.String())
	return err
}

// hasError reports whether the reply, or any response in a batch reply,
// carries an error member.
func hasError(reply []byte) bool {
	type member struct {
		Error json.RawMessage `json:"error"`
	}
	var batch []member
	if err := json.Unmarshal(reply, &batch); err == nil {
		for _, m := range batch {
			if m.Error != nil {
				return true
			}
		}
		return false
	}
	var single member
	return json.Unmarshal(reply, &single) == nil && single.Error != nil
}

var longCall = `
Send one payload to a running rpcwrap server and print the reply.

The payload is either given verbatim as the argument or built from --method,
--params and --id. HTTP is used unless --addr selects the TCP transport.

Examples:
  rpcwrap call '[{"jsonrpc":"2.0","method":"add","params":[1,2],"id":1}]'
  rpcwrap call --method subtract --params '{"minuend":42,"subtrahend":23}'
  rpcwrap call --addr 127.0.0.1:7070 --method ping
`
