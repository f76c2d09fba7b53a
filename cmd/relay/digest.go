package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ykvlv/todo-relay/internal/app"
	"github.com/ykvlv/todo-relay/internal/commands"
	"github.com/ykvlv/todo-relay/internal/digest"
)

func newDigestCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "digest [today|tomorrow|week|backlog]",
		Short:     "Print one digest to stdout",
		Long:      "Fetch todos for every configured user and print a digest in Discord markdown, then exit.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{commands.Today, commands.Tomorrow, commands.Week, commands.Backlog},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := setup()
			defer func() { _ = log.Sync() }()

			if err := cfg.ValidateProvider(); err != nil {
				return err
			}
			builder, err := app.NewBuilder(cfg, log, digest.DiscordStyle{}, nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return printDigest(ctx, builder, args[0], time.Now(), cmd.OutOrStdout(), log)
		},
	}
}

// printDigest renders the named digest at now and writes it to w. An empty
// digest prints the command's empty reply.
func printDigest(ctx context.Context, d commands.Digests, kind string, now time.Time, w io.Writer, log *zap.Logger) error {
	cmd, ok := commands.Lookup(kind)
	if !ok {
		return fmt.Errorf("unknown digest %q", kind)
	}

	var render func(context.Context, time.Time) (string, error)
	switch cmd.Name {
	case commands.Today:
		render = d.Today
	case commands.Tomorrow:
		render = d.Tomorrow
	case commands.Week:
		render = d.Week
	case commands.Backlog:
		render = d.Backlog
	}

	start := time.Now()
	text, err := render(ctx, now)
	if err != nil {
		return fmt.Errorf("%s digest: %w", cmd.Name, err)
	}
	log.Debug("digest rendered", zap.String("kind", cmd.Name), zap.Duration("took", time.Since(start)))
	if text == "" {
		text = cmd.Empty
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
