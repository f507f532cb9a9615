package handler

import (
	"context"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/auth"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

type ContextKey string

var (
	SessionCtxKey ContextKey = "session"
)

// Session 是通过了会话检查的请求所携带的身份信息，Identity 为本次请求重新从数据库读取的最新记录
type Session struct {
	Claims   *auth.Claims
	Identity *domain.Identity
}

func (s *Session) IsElevated() bool {
	return s != nil && s.Identity.IsElevated()
}

func sessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(SessionCtxKey).(*Session)
	return session, ok && session != nil
}

func withSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, SessionCtxKey, session)
}
