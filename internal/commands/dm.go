package commands

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"xsportbot/internal/locale"
	"xsportbot/internal/notifier/broadcast"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

func (r *Router) dmUser(ctx context.Context, req *Request) error {
	userID := req.In.String("user")
	err := r.d.Gateway.Send(ctx, transport.User(userID), transport.Text(req.In.String("message")))
	switch {
	case errors.Is(err, transport.ErrForbidden), errors.Is(err, transport.ErrNotFound):
		return reply(locale.KeyDMFailed, userID)
	case err != nil:
		return err
	}
	return req.ReplyText(ctx, locale.KeyDMSent, userID)
}

// dmRole messages every member of a role, one per second, and reports how many
// were reached once the fan-out is done.
func (r *Router) dmRole(ctx context.Context, req *Request) error {
	roleID := req.In.String("role")
	if err := req.Defer(ctx, false); err != nil {
		return err
	}

	var (
		roleName string
		members  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := r.d.Directory.RoleName(gctx, req.In.GuildID, roleID)
		if err != nil {
			return err
		}
		roleName = name
		return nil
	})
	g.Go(func() error {
		ids, err := r.d.Directory.RoleMembers(gctx, req.In.GuildID, roleID)
		if err != nil {
			return err
		}
		members = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			return reply(locale.KeyDMRoleSent, 0, 0, "<@&"+roleID+">")
		}
		return err
	}

	// The fan-out runs past the command timeout for large roles.
	runCtx := context.WithoutCancel(ctx)
	res := r.d.Broadcast.Run(runCtx, "dmrole_"+roleID, members, transport.Text(req.In.String("message")),
		broadcast.Options{Interval: inviteInterval})
	req.Logger.Info("role dm finished",
		logx.String("role", roleName),
		logx.Int("total", res.Total),
		logx.Int("sent", res.Sent),
		logx.Int("forbidden", res.Forbidden),
	)
	return req.Reply(runCtx, transport.Text(req.T(locale.KeyDMRoleSent, res.Sent, res.Total, "@"+roleName)), false)
}
