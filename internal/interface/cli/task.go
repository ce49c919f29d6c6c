package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/campus-ai/internal/core/aitask"
	"github.com/jinford/campus-ai/internal/platform/scheduler"
)

// TaskPollAction は pending のAIタスクを1バッチ処理するコマンドのアクション
func TaskPollAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report, err := appCtx.Container.Poller.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("ポーリングに失敗: %w", err)
	}
	return printJSON(cmd.Root().Writer, report)
}

// TaskScheduleAction は cron スケジュールでポーリングを続けるコマンドのアクション
// シグナルを受け取るまで終了しない
func TaskScheduleAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	schedule := cmd.String("cron")
	if schedule == "" {
		schedule = appCtx.Config.Worker.Cron
	}

	job := scheduler.NewPollJob(scheduler.PollJobConfig{
		CronSchedule: schedule,
		StaleAfter:   appCtx.Config.Worker.StaleAfter,
	}, appCtx.Container.Poller, appCtx.Logger)

	if err := job.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	job.Stop()

	return nil
}

// TaskReapAction は processing のまま停滞したタスクを失敗にするコマンドのアクション
func TaskReapAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	olderThan := cmd.Duration("older-than")
	if olderThan <= 0 {
		olderThan = appCtx.Config.Worker.StaleAfter
	}

	reaped, err := appCtx.Container.Poller.ReapStale(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("停滞タスクの回収に失敗: %w", err)
	}
	return printJSON(cmd.Root().Writer, map[string]any{
		"reaped":    reaped,
		"olderThan": olderThan.String(),
	})
}

// TaskDescribeAction は出品の説明文を単発で生成するコマンドのアクション
func TaskDescribeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result := appCtx.Container.Processor.GenerateListingDescription(ctx, cmd.String("listing"))
	return reportResult(cmd, result)
}

// TaskModerateAction はコンテンツを単発でモデレーションするコマンドのアクション
func TaskModerateAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result := appCtx.Container.Processor.ModerateContent(ctx,
		cmd.String("content"), aitask.ContentType(cmd.String("type")))
	return reportResult(cmd, result)
}

// reportResult は処理結果を出力し、失敗であれば終了コードを非0にする
func reportResult(cmd *cli.Command, result aitask.Result) error {
	if err := printJSON(cmd.Root().Writer, result); err != nil {
		return err
	}
	if result.Status == aitask.OutcomeError {
		return cli.Exit(fmt.Sprintf("タスクが失敗しました (%s): %s", result.Kind, result.Message), 1)
	}
	return nil
}
