// Package seed 向数据库写入演示数据。
package seed

import (
	"context"
	"log/slog"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/utils"
)

type IdentityWriter interface {
	CreateIdentity(ctx context.Context, identity *domain.Identity) error
	UpdateIdentityStatus(ctx context.Context, id string, status domain.Status) (*domain.Identity, error)
}

// Identities 走与注册相同的事务插入 n 个随机用户，然后给非首个用户随机分配审批状态。
// 所有用户共用同一个密码哈希，返回成功插入的数量。
func Identities(ctx context.Context, w IdentityWriter, n int, passwordHash, emailDomain string) int {
	cnt := 0
	for i := 0; i < n; i++ {
		identity := utils.GenerateRandomIdentity(passwordHash, emailDomain)
		if err := w.CreateIdentity(ctx, identity); err != nil {
			slog.Error("无法插入用户", slog.String("email", identity.Email), slog.String("error", err.Error()))
			continue
		}
		cnt++

		// 第一个用户已经是管理员，不修改
		if identity.IsElevated() {
			slog.Info("已创建管理员", slog.String("email", identity.Email))
			continue
		}

		status := utils.GenerateRandomStatus()
		if status == identity.Status {
			continue
		}
		if _, err := w.UpdateIdentityStatus(ctx, identity.ID, status); err != nil {
			slog.Error("无法更新用户状态", slog.String("email", identity.Email), slog.String("error", err.Error()))
		}
	}

	return cnt
}
