package request

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/internal/shared/logutil"
)

type Context interface {
	RequestStartedAt() time.Time
	Logger() logutil.Log
}

type BaseContext struct {
	Ctx  context.Context
	Log  logutil.Log
	Lctx logutil.Context

	StartedAt time.Time
}

func (ctx BaseContext) RequestStartedAt() time.Time {
	return ctx.StartedAt
}

func (ctx BaseContext) Logger() logutil.Log {
	return ctx.Log
}

// AuthorizedContext carries the caller identity resolved by the HTTP
// layer. Ownership checks in services rely on UserID.
type AuthorizedContext struct {
	BaseContext

	UserID uint
}

func (ctx *AuthorizedContext) FillLogContext(lctx logutil.Context) {
	lctx["user_id"] = ctx.UserID
}
