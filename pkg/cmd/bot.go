package cmd

import (
	"context"
	"fmt"

	"github.com/rlproxy/rlp-tgbot/pkg/bot"
	"github.com/rlproxy/rlp-tgbot/pkg/core"
	"github.com/rlproxy/rlp-tgbot/pkg/prov"
	"github.com/rlproxy/rlp-tgbot/pkg/repo"
)

func runBot(ctx context.Context, arg *args) error {
	if err := initLogger(arg); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	cfg, err := loadConfig(arg)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sessions := repo.New(&cfg.Repo)
	defer func() { _ = sessions.Close() }()

	proxy := prov.New(cfg.Proxy)
	svc := core.New(sessions, proxy)

	b, err := bot.New(&cfg.Bot, svc)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	return b.Run(ctx)
}
