package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var (
		addr      string
		agentType string
		country   string
		drafts    bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the Task Creator and watch the test run",
		Long: `Open an operator session. Describe what the legal assistant should be
tested on; once the Task Creator has enough information it generates tasks
and runs them, streaming every step here.

Commands:
  /reset   Stop the current run and start a new conversation
  /quit    Exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Connecting to %s...\n", addr)
			client, greeting, err := NewClient(addr, agentType, country)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			fmt.Println(color.GreenString("%s", greeting))
			fmt.Printf("Testing %s (%s). Type a message and press Enter.\n\n", agentType, country)

			go client.ReadMessages(NewRenderer(os.Stdout, drafts))
			return chatLoop(client)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:17000/ws", "WebSocket server address")
	cmd.Flags().StringVar(&agentType, "agent-type", "home_chat", "Agent under test: home_chat or case_ai")
	cmd.Flags().StringVar(&country, "country", "UK", "Jurisdiction the agent is tested for")
	cmd.Flags().BoolVar(&drafts, "drafts", true, "Show streamed drafts")

	return cmd
}

func chatLoop(client *Client) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			switch input {
			case "":
				continue
			case "/quit":
				fmt.Println("Bye!")
				return nil
			case "/reset":
				if err := client.SendReset(); err != nil {
					return fmt.Errorf("send reset: %w", err)
				}
				continue
			}
			if err := client.SendInput(input); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
