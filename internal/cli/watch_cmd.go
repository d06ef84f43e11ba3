package cli

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matic113/freelance-platform-sub003/internal/cli/formatter"
	"github.com/matic113/freelance-platform-sub003/internal/client"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var tui bool

	cmd := &cobra.Command{
		Use:   "watch <contract>...",
		Short: "Stream live updates for one or more contracts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect()
			if err != nil {
				return err
			}
			ids := make([]string, len(args))
			for i, arg := range args {
				if ids[i], err = resolveContractID(cmd.Context(), c, arg); err != nil {
					return err
				}
			}

			sub := client.NewSubscriber(c, slog.Default())
			if tui && app.IsTerminal != nil && app.IsTerminal() {
				return watchTUI(cmd.Context(), sub, ids)
			}

			out := cmd.OutOrStdout()
			sub.OnEvent = func(e events.Event) {
				fmt.Fprintln(out, formatter.FormatEvent(e))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d contract(s). Ctrl-C to stop.\n", len(ids))
			return sub.Run(cmd.Context(), ids...)
		},
	}

	cmd.Flags().BoolVar(&tui, "tui", false, "Full-screen event log (terminal only)")
	return cmd
}

func watchTUI(ctx context.Context, sub *client.Subscriber, ids []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWatchModel(ids), tea.WithAltScreen(), tea.WithContext(ctx))
	sub.OnEvent = func(e events.Event) { p.Send(eventMsg(e)) }
	go func() {
		p.Send(watchDoneMsg{err: sub.Run(ctx, ids...)})
	}()

	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	if m, ok := final.(watchModel); ok {
		return m.err
	}
	return nil
}
