package commands

import (
	"context"
	"errors"

	"xsportbot/internal/locale"
	"xsportbot/internal/storage"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

// Request is one command invocation flowing through the middleware chain.
type Request struct {
	In       transport.Interaction
	Lang     locale.Tag
	Settings storage.GuildSettings
	Logger   logx.Logger

	deferred bool
	replied  bool
}

// T renders key in the request's language.
func (r *Request) T(key locale.Key, args ...any) string {
	return r.Lang.Sprintf(key, args...)
}

// Defer acknowledges the interaction; the answer must then come through Reply.
func (r *Request) Defer(ctx context.Context, ephemeral bool) error {
	if r.deferred || r.replied || r.In.Responder == nil {
		return nil
	}
	if err := r.In.Responder.Defer(ctx, ephemeral); err != nil {
		return err
	}
	r.deferred = true
	return nil
}

// Reply answers the interaction, as a follow-up when it was deferred or already
// answered once.
func (r *Request) Reply(ctx context.Context, msg transport.Message, ephemeral bool) error {
	if r.In.Responder == nil {
		return nil
	}
	var err error
	if r.deferred || r.replied {
		err = r.In.Responder.FollowUp(ctx, msg, ephemeral)
	} else {
		err = r.In.Responder.Respond(ctx, msg, ephemeral)
	}
	if err == nil {
		r.replied = true
	}
	return err
}

func (r *Request) ReplyText(ctx context.Context, key locale.Key, args ...any) error {
	return r.Reply(ctx, transport.Text(r.T(key, args...)), false)
}

// replyError ends a command with a localized, ephemeral notice to the caller.
type replyError struct {
	key  locale.Key
	args []any
}

func (e *replyError) Error() string { return "refused: " + string(e.key) }

func reply(key locale.Key, args ...any) error {
	return &replyError{key: key, args: args}
}

func isReply(err error) bool {
	var re *replyError
	return errors.As(err, &re)
}
