package commands

import (
	"context"
	"fmt"
	"time"

	"xsportbot/internal/locale"
	logx "xsportbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func MWTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func MWPanicRecover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					req.Logger.Error("panic recovered",
						logx.Any("panic", r),
						logx.Stack(logx.StackTrace(3, 24)),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func MWRequestLog() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			d := time.Since(start)

			fields := []logx.Field{
				logx.String("cmd", req.In.Command),
				logx.String("guild_id", req.In.GuildID),
				logx.String("channel_id", req.In.ChannelID),
				logx.String("user_id", req.In.UserID),
				logx.Duration("dur", d),
			}
			switch {
			case err != nil && isReply(err):
				req.Logger.Debug("request refused", append(fields, logx.Err(err))...)
			case err != nil:
				req.Logger.Warn("request failed", append(fields, logx.Err(err))...)
			case d >= 750*time.Millisecond:
				req.Logger.Info("request ok", fields...)
			default:
				req.Logger.Debug("request ok", fields...)
			}
			return err
		}
	}
}

// MWAudit writes every invocation to the command log, allowed or not.
func MWAudit(store Store) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if err := store.LogCommand(ctx, req.In.GuildID, req.In.UserID, req.In.Command); err != nil {
				req.Logger.Warn("command audit failed", logx.Err(err))
			}
			return next(ctx, req)
		}
	}
}

// MWGuard enforces the guild channel allow-list and, for admin commands, the
// caller's permissions.
func MWGuard(adminOnly bool) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if req.In.GuildID == "" || !req.Settings.AllowsChannel(req.In.ChannelID) {
				return reply(locale.KeyChannelNotAllowed)
			}
			if adminOnly && !req.In.Admin {
				return reply(locale.KeyNoPermission)
			}
			return next(ctx, req)
		}
	}
}
