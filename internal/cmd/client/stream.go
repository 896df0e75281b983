package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewStreamCommand constructs the `stream` command group and subcommands.
func NewStreamCommand(baseURL BaseURLFunc) *cobra.Command {
	streamCmd := &cobra.Command{Use: "stream", Short: "Stream operations"}
	streamCmd.AddCommand(
		newStreamAppendCommand(baseURL),
		newStreamReadCommand(baseURL),
		newStreamTailCommand(baseURL),
		newStreamListCommand(baseURL),
		newStreamDeleteCommand(baseURL),
	)
	return streamCmd
}

// newStreamAppendCommand constructs the `stream append` subcommand.
func newStreamAppendCommand(baseURL BaseURLFunc) *cobra.Command {
	appendCmd := &cobra.Command{
		Use:   "append",
		Short: "Append a JSON event to a stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			data, _ := cmd.Flags().GetString("data")
			if data == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				data = string(b)
			}
			if !json.Valid([]byte(data)) {
				return fmt.Errorf("--data must be valid JSON")
			}
			var out map[string]any
			if err := doRequest(cmd.Context(), http.MethodPost,
				baseURL()+"/v1/streams/"+url.PathEscape(stream)+"/events", []byte(data), &out); err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	appendCmd.Flags().String("stream", "", "Stream name")
	appendCmd.Flags().String("data", "{}", "Event data as JSON ('-' reads stdin)")
	_ = appendCmd.MarkFlagRequired("stream")
	return appendCmd
}

// newStreamReadCommand constructs the `stream read` subcommand.
func newStreamReadCommand(baseURL BaseURLFunc) *cobra.Command {
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read events after an offset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			from, _ := cmd.Flags().GetString("from")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{}
			if from != "" {
				q.Set("from", from)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			u := baseURL() + "/v1/streams/" + url.PathEscape(stream) + "/events"
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			var out struct {
				Events     []json.RawMessage `json:"events"`
				NextOffset string            `json:"nextOffset"`
			}
			if err := getJSON(cmd.Context(), u, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range out.Events {
				_ = enc.Encode(ev)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "next:", out.NextOffset)
			return nil
		},
	}
	readCmd.Flags().String("stream", "", "Stream name")
	readCmd.Flags().String("from", "", "Read events after this offset (default: start)")
	readCmd.Flags().Int("limit", 0, "Maximum number of events (0 = all)")
	readCmd.Flags().String("filter", "", "CEL filter (server-side)")
	_ = readCmd.MarkFlagRequired("stream")
	return readCmd
}

// newStreamTailCommand constructs the `stream tail` subcommand. It follows
// the SSE subscribe endpoint and prints each event frame as one JSON line.
func newStreamTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow a stream live (replay then tail)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			from, _ := cmd.Flags().GetString("from")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{}
			if from != "" {
				q.Set("from", from)
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			u := baseURL() + "/v1/streams/" + url.PathEscape(stream) + "/subscribe"
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return fmt.Errorf("server returned %s", resp.Status)
			}

			sc := bufio.NewScanner(resp.Body)
			inEvent := false
			for sc.Scan() {
				line := sc.Text()
				switch {
				case line == "event: event":
					inEvent = true
				case line == "":
					inEvent = false
				case strings.HasPrefix(line, "data: ") && inEvent:
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimPrefix(line, "data: "))
				}
			}
			return sc.Err()
		},
	}
	tailCmd.Flags().String("stream", "", "Stream name")
	tailCmd.Flags().String("from", "", "Replay events after this offset (default: start)")
	tailCmd.Flags().String("filter", "", "CEL filter (server-side)")
	_ = tailCmd.MarkFlagRequired("stream")
	return tailCmd
}

// newStreamListCommand constructs the `stream list` subcommand.
func newStreamListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List streams",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out struct {
				Streams []string `json:"streams"`
			}
			if err := getJSON(cmd.Context(), baseURL()+"/v1/streams", &out); err != nil {
				return err
			}
			for _, name := range out.Streams {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// newStreamDeleteCommand constructs the `stream delete` subcommand.
func newStreamDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stream and everything attached to it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			if err := doRequest(cmd.Context(), http.MethodDelete,
				baseURL()+"/v1/streams/"+url.PathEscape(stream), nil, nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "deleted:", stream)
			return nil
		},
	}
	deleteCmd.Flags().String("stream", "", "Stream name")
	_ = deleteCmd.MarkFlagRequired("stream")
	return deleteCmd
}
