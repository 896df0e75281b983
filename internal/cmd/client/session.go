package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewSessionCommand constructs the `session` command group.
func NewSessionCommand(baseURL BaseURLFunc) *cobra.Command {
	sessionCmd := &cobra.Command{Use: "session", Short: "Session operations"}
	sessionCmd.AddCommand(
		newSessionStartCommand(baseURL),
		newSessionStopCommand(baseURL),
		newSessionPromptCommand(baseURL),
	)
	return sessionCmd
}

// newSessionStartCommand constructs the `session start` subcommand.
func newSessionStartCommand(baseURL BaseURLFunc) *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Ensure a harness session is running for a stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			model, _ := cmd.Flags().GetString("model")
			system, _ := cmd.Flags().GetString("system-prompt")
			sessionID, _ := cmd.Flags().GetString("session-id")

			body := map[string]string{}
			if model != "" {
				body["model"] = model
			}
			if system != "" {
				body["systemPrompt"] = system
			}
			if sessionID != "" {
				body["sessionId"] = sessionID
			}
			var out map[string]any
			if err := postJSON(cmd.Context(),
				baseURL()+"/v1/streams/"+url.PathEscape(stream)+"/session", body, &out); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "running:", out["running"])
			return nil
		},
	}
	startCmd.Flags().String("stream", "", "Stream name")
	startCmd.Flags().String("model", "", "Model identifier (first start only)")
	startCmd.Flags().String("system-prompt", "", "System prompt (first start only)")
	startCmd.Flags().String("session-id", "", "Session ID (first start only; generated if empty)")
	_ = startCmd.MarkFlagRequired("stream")
	return startCmd
}

// newSessionStopCommand constructs the `session stop` subcommand.
func newSessionStopCommand(baseURL BaseURLFunc) *cobra.Command {
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a stream's harness session (history stays)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			var out map[string]any
			if err := doRequest(cmd.Context(), http.MethodDelete,
				baseURL()+"/v1/streams/"+url.PathEscape(stream)+"/session", nil, &out); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "stopped:", out["stopped"])
			return nil
		},
	}
	stopCmd.Flags().String("stream", "", "Stream name")
	_ = stopCmd.MarkFlagRequired("stream")
	return stopCmd
}

// newSessionPromptCommand constructs the `session prompt` subcommand, a
// shorthand for appending a PROMPT envelope to the stream.
func newSessionPromptCommand(baseURL BaseURLFunc) *cobra.Command {
	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "Send a prompt to a stream's session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			content, _ := cmd.Flags().GetString("content")
			body := map[string]any{
				"type":    "PROMPT",
				"payload": map[string]string{"content": content},
			}
			var out map[string]any
			if err := postJSON(cmd.Context(),
				baseURL()+"/v1/streams/"+url.PathEscape(stream)+"/events", body, &out); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "offset:", out["offset"])
			return nil
		},
	}
	promptCmd.Flags().String("stream", "", "Stream name")
	promptCmd.Flags().String("content", "", "Prompt text")
	_ = promptCmd.MarkFlagRequired("stream")
	_ = promptCmd.MarkFlagRequired("content")
	return promptCmd
}
