package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/campus-ai/internal/interface/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "campus-ai",
		Usage: "大学マーケットプレイス向け AI タスク処理（説明文生成・モデレーション）",
		Commands: []*cli.Command{
			{
				Name:  "task",
				Usage: "AIタスク処理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "poll",
						Usage:  "pending のAIタスクを1バッチ処理",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.TaskPollAction,
					},
					{
						Name:  "schedule",
						Usage: "cron スケジュールでAIタスクのポーリングを継続",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "cron",
								Usage: "Cron形式のスケジュール（未指定時は WORKER_CRON）",
							},
						},
						Action: appcli.TaskScheduleAction,
					},
					{
						Name:  "reap",
						Usage: "processing のまま停滞したAIタスクを失敗にする",
						Flags: []cli.Flag{
							envFlag(),
							&cli.DurationFlag{
								Name:  "older-than",
								Usage: "停滞とみなす経過時間（未指定時は WORKER_STALE_AFTER）",
							},
						},
						Action: appcli.TaskReapAction,
					},
					{
						Name:  "describe",
						Usage: "出品の説明文を生成",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "listing",
								Usage:    "出品ID",
								Required: true,
							},
						},
						Action: appcli.TaskDescribeAction,
					},
					{
						Name:  "moderate",
						Usage: "投稿・コメントをモデレーション",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "content",
								Usage:    "コンテンツID",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "type",
								Usage: "コンテンツ種別 (post, comment)",
								Value: "post",
							},
						},
						Action: appcli.TaskModerateAction,
					},
				},
			},
			{
				Name:  "server",
				Usage: "HTTPサーバコマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "待ち受けポート（未指定時は HTTP_PORT）",
							},
							&cli.BoolFlag{
								Name:  "with-scheduler",
								Usage: "同一プロセスでAIタスクのポーリングも実行",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
