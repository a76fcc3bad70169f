package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/biabot/internal/chat"
)

// turnFunc sends one chat request and returns the reply.
type turnFunc func(ctx context.Context, req chat.Request) (*chat.Reply, error)

func newChatCmd(opts *globalOptions) *cobra.Command {
	var serverSide bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an intake conversation",
		Long: `Start an interactive intake conversation.

By default the conversation runs in this process and calls the API for
authentication, preview and submission. With --server the conversation state
lives on the server and each line is posted to /chat/message.

Type /reset to start over and /quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := opts.client()

			var turn turnFunc
			if serverSide {
				turn = api.Chat
			} else {
				controller := chat.NewController(api, chat.NewMemorySessionStore(), chat.ControllerConfig{})
				turn = controller.Handle
			}
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), turn)
		},
	}

	cmd.Flags().BoolVar(&serverSide, "server", false, "Keep conversation state on the server")

	return cmd
}

// runChat reads user lines from in until EOF or /quit and prints each reply.
func runChat(ctx context.Context, in io.Reader, out io.Writer, turn turnFunc) error {
	reply, err := turn(ctx, chat.Request{})
	if err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	printReply(out, reply)
	sessionID := reply.SessionID

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		req := chat.Request{SessionID: sessionID, Message: line}
		switch strings.ToLower(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			req = chat.Request{SessionID: sessionID, Reset: true}
		}

		reply, err := turn(ctx, req)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		sessionID = reply.SessionID
		printReply(out, reply)
	}
}

func printReply(out io.Writer, reply *chat.Reply) {
	fmt.Fprintf(out, "\nbiaBot: %s\n", reply.AssistantMessage)
	if reply.RequestID != "" {
		fmt.Fprintf(out, "  request id: %s  board item: %s\n", reply.RequestID, reply.MondayItemID)
	}
	if len(reply.Suggestions) > 0 {
		fmt.Fprintf(out, "  [%s]\n", strings.Join(reply.Suggestions, "] ["))
	}
	fmt.Fprintln(out)
}
