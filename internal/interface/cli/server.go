package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/campus-ai/internal/interface/httpapi"
	"github.com/jinford/campus-ai/internal/platform/scheduler"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cont := appCtx.Container

	// 同一プロセスでポーリングも行う場合
	if cmd.Bool("with-scheduler") {
		job := scheduler.NewPollJob(scheduler.PollJobConfig{
			CronSchedule: appCtx.Config.Worker.Cron,
			StaleAfter:   appCtx.Config.Worker.StaleAfter,
		}, cont.Poller, appCtx.Logger)
		if err := job.Start(ctx); err != nil {
			return err
		}
		defer job.Stop()
	}

	port := int(cmd.Int("port"))
	if port <= 0 {
		port = appCtx.Config.HTTP.Port
	}

	server := httpapi.NewServer(httpapi.Services{
		Trigger:     cont.Trigger,
		Poller:      cont.Poller,
		Marketplace: cont.Marketplace,
		Account:     cont.Account,
	}, httpapi.WithLogger(appCtx.Logger))

	return server.Start(ctx, fmt.Sprintf(":%d", port))
}
