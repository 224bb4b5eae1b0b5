package discord

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"xsportbot/internal/transport"
)

func TestToCommandBoundsIntegers(t *testing.T) {
	t.Parallel()

	cmd := toCommand(transport.CommandSpec{
		Name:        "creatematch",
		Description: "create",
		Options: []transport.OptionSpec{
			{Name: "team1", Type: transport.OptionString, Required: true},
			{Name: "day", Type: transport.OptionInteger, Required: true, Min: 1, Max: 31},
			{Name: "limit", Type: transport.OptionInteger},
		},
	})
	if len(cmd.Options) != 3 {
		t.Fatalf("options = %d, want 3", len(cmd.Options))
	}
	if cmd.Options[0].Type != discordgo.ApplicationCommandOptionString || !cmd.Options[0].Required {
		t.Fatalf("team1 = %+v", cmd.Options[0])
	}
	day := cmd.Options[1]
	if day.MinValue == nil || *day.MinValue != 1 || day.MaxValue != 31 {
		t.Fatalf("day bounds = %v..%v, want 1..31", day.MinValue, day.MaxValue)
	}
	if cmd.Options[2].MinValue != nil {
		t.Fatalf("unbounded option got MinValue")
	}
}

func TestIsAdmin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		perms int64
		want  bool
	}{
		{0, false},
		{discordgo.PermissionSendMessages, false},
		{discordgo.PermissionAdministrator, true},
		{discordgo.PermissionManageServer, true},
		{discordgo.PermissionManageChannels | discordgo.PermissionSendMessages, true},
	}
	for _, tc := range cases {
		if got := isAdmin(tc.perms); got != tc.want {
			t.Fatalf("isAdmin(%d) = %v, want %v", tc.perms, got, tc.want)
		}
	}
}

func TestToInteractionReadsOptions(t *testing.T) {
	t.Parallel()

	i := &discordgo.Interaction{
		ID:        "i1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Locale:    discordgo.EnglishUS,
		Member: &discordgo.Member{
			Nick:        "Capi",
			Permissions: discordgo.PermissionManageServer,
			User:        &discordgo.User{ID: "u1", Username: "capitan"},
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "recordresult",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "match_id", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(7)},
				{Name: "note", Type: discordgo.ApplicationCommandOptionString, Value: "gg"},
				{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "998877"},
			},
		},
	}

	in := toInteraction(i)
	if in.Command != "recordresult" || in.GuildID != "g1" || in.UserID != "u1" {
		t.Fatalf("interaction = %+v", in)
	}
	if !in.Admin {
		t.Fatalf("admin = false, want true")
	}
	if in.UserName != "Capi" {
		t.Fatalf("user name = %q, want Capi", in.UserName)
	}
	if in.Locale != "en-US" {
		t.Fatalf("locale = %q, want en-US", in.Locale)
	}
	if n, err := in.Int("match_id"); err != nil || n != 7 {
		t.Fatalf("match_id = %d, %v", n, err)
	}
	if got := in.String("note"); got != "gg" {
		t.Fatalf("note = %q", got)
	}
	if got := in.String("channel"); got != "998877" {
		t.Fatalf("channel = %q", got)
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	rest := func(status, code int) error {
		e := &discordgo.RESTError{Response: &http.Response{StatusCode: status, Status: http.StatusText(status)}}
		if code != 0 {
			e.Message = &discordgo.APIErrorMessage{Code: code}
		}
		return e
	}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"dm closed", rest(http.StatusForbidden, discordgo.ErrCodeCannotSendMessagesToThisUser), transport.ErrForbidden},
		{"plain 403", rest(http.StatusForbidden, 0), transport.ErrForbidden},
		{"unknown channel", rest(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), transport.ErrNotFound},
		{"plain 404", rest(http.StatusNotFound, 0), transport.ErrNotFound},
		{"server error", rest(http.StatusBadGateway, 0), nil},
		{"not rest", errors.New("boom"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError(tc.err)
			if tc.want == nil {
				if errors.Is(got, transport.ErrForbidden) || errors.Is(got, transport.ErrNotFound) {
					t.Fatalf("classifyError = %v, want transient", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("classifyError = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	if got := splitText("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("splitText short = %q", got)
	}

	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	got := splitText(long, 10)
	if len(got) != 2 || got[0] != strings.Repeat("a", 8) || got[1] != strings.Repeat("b", 8) {
		t.Fatalf("splitText newline = %q", got)
	}

	got = splitText(strings.Repeat("x", 25), 10)
	if len(got) != 3 || len(got[2]) != 5 {
		t.Fatalf("splitText hard = %q", got)
	}
}

func TestMembersWithRoleSkipsBots(t *testing.T) {
	t.Parallel()

	members := []*discordgo.Member{
		{User: &discordgo.User{ID: "1"}, Roles: []string{"r1", "r2"}},
		{User: &discordgo.User{ID: "2"}, Roles: []string{"r2"}},
		{User: &discordgo.User{ID: "3", Bot: true}, Roles: []string{"r1"}},
		nil,
	}
	got := membersWithRole(members, "r1")
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("membersWithRole = %v, want [1]", got)
	}
}

func TestDisplayNamePrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		m    *discordgo.Member
		want string
	}{
		{&discordgo.Member{Nick: "nick", User: &discordgo.User{GlobalName: "global", Username: "user"}}, "nick"},
		{&discordgo.Member{User: &discordgo.User{GlobalName: "global", Username: "user"}}, "global"},
		{&discordgo.Member{User: &discordgo.User{Username: "user"}}, "user"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := displayName(tc.m); got != tc.want {
			t.Fatalf("displayName = %q, want %q", got, tc.want)
		}
	}
}

func TestToEmbedFooterAndFields(t *testing.T) {
	t.Parallel()

	e := toEmbed(transport.Embed{
		Title:  "t",
		Color:  0x0099ff,
		Footer: "Programado por ana",
		Fields: []transport.EmbedField{{Name: "a", Value: "b", Inline: true}},
	})
	if e.Footer == nil || e.Footer.Text != "Programado por ana" {
		t.Fatalf("footer = %+v", e.Footer)
	}
	if e.Color != 0x0099ff || len(e.Fields) != 1 || !e.Fields[0].Inline {
		t.Fatalf("embed = %+v", e)
	}
	if e.Timestamp != "" {
		t.Fatalf("timestamp = %q, want empty", e.Timestamp)
	}
}
