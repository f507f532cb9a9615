package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/auth"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/config"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/repository"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var n int

	flag.IntVar(&n, "n", 5, "要插入的用户数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if n <= 0 {
		logger.Error("请输入合法的用户数量")
		os.Exit(1)
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	// 所有演示用户使用同一个密码
	passwordHash, err := auth.HashPassword(cfg.Seed.User.Password, cfg.BcryptCost)
	if err != nil {
		logger.Error("无法生成密码哈希", "error", err)
		return
	}

	cnt := seed.Identities(context.Background(), repo, n, passwordHash, cfg.Email.UserDomain)
	logger.Info("插入用户成功", slog.Int("count", cnt))
}
