package commands

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"xsportbot/internal/locale"
	"xsportbot/internal/match"
	"xsportbot/internal/notifier"
	"xsportbot/internal/notifier/broadcast"
	"xsportbot/internal/standings"
	"xsportbot/internal/storage"
	"xsportbot/internal/transport"
	logx "xsportbot/pkg/logx"
)

type sent struct {
	msg       transport.Message
	ephemeral bool
	followUp  bool
}

type fakeResponder struct {
	mu       sync.Mutex
	deferred bool
	out      []sent
}

func (f *fakeResponder) Defer(context.Context, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deferred = true
	return nil
}

func (f *fakeResponder) Respond(_ context.Context, msg transport.Message, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, sent{msg: msg, ephemeral: ephemeral})
	return nil
}

func (f *fakeResponder) FollowUp(_ context.Context, msg transport.Message, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, sent{msg: msg, ephemeral: ephemeral, followUp: true})
	return nil
}

func (f *fakeResponder) last(t *testing.T) sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		t.Fatalf("no reply sent")
	}
	return f.out[len(f.out)-1]
}

func (s sent) text() string {
	if s.msg.Embed != nil {
		return s.msg.Embed.Description
	}
	return s.msg.Text
}

type fakeReminders struct {
	mu        sync.Mutex
	armed     []int64
	cancelled []int64
}

func (f *fakeReminders) ArmMatch(m match.Match) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = append(f.armed, m.ID)
	return []string{"a", "b"}
}

func (f *fakeReminders) CancelMatch(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return 2
}

type fakeBroadcast struct {
	mu   sync.Mutex
	jobs [][]string
}

func (f *fakeBroadcast) NewJob(_ string, recipients []string, _ transport.Message, _ broadcast.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, recipients)
	return "job", nil
}

func (f *fakeBroadcast) Run(_ context.Context, _ string, recipients []string, _ transport.Message, _ broadcast.Options) broadcast.Result {
	f.mu.Lock()
	f.jobs = append(f.jobs, recipients)
	f.mu.Unlock()
	return broadcast.Result{Total: len(recipients), Sent: len(recipients)}
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notifier.Notice
}

func (f *fakeNotifier) Notify(_ context.Context, n notifier.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	return nil
}

type fakeGateway struct {
	err error
	to  []transport.Destination
}

func (g *fakeGateway) Send(_ context.Context, to transport.Destination, _ transport.Message) error {
	g.to = append(g.to, to)
	return g.err
}

type fakeDirectory struct {
	roles   map[string]string
	members map[string][]string
	names   map[string]string
}

func (d fakeDirectory) RoleName(_ context.Context, _, id string) (string, error) {
	if n, ok := d.roles[id]; ok {
		return n, nil
	}
	return "", transport.ErrNotFound
}

func (d fakeDirectory) RoleMembers(_ context.Context, _, id string) ([]string, error) {
	return d.members[id], nil
}

func (d fakeDirectory) MemberDisplayName(_ context.Context, _, id string) (string, error) {
	if n, ok := d.names[id]; ok {
		return n, nil
	}
	return "", transport.ErrNotFound
}

func (d fakeDirectory) GuildStats(context.Context) (transport.GuildStats, error) {
	return transport.GuildStats{}, nil
}

type fixture struct {
	router    *Router
	store     *storage.Store
	registry  *match.Registry
	reminders *fakeReminders
	broadcast *fakeBroadcast
	notifier  *fakeNotifier
	gateway   *fakeGateway
	clock     *match.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		store:     st,
		registry:  match.NewRegistry(),
		reminders: &fakeReminders{},
		broadcast: &fakeBroadcast{},
		notifier:  &fakeNotifier{},
		gateway:   &fakeGateway{},
		clock:     match.NewManualClock(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.router = New(Config{Timeout: 5 * time.Second}, Deps{
		Store:     st,
		Ledger:    standings.New(st, logx.Nop()),
		Registry:  f.registry,
		Reminders: f.reminders,
		Broadcast: f.broadcast,
		Notifier:  f.notifier,
		Gateway:   f.gateway,
		Directory: fakeDirectory{
			roles:   map[string]string{"42": "Tigres"},
			members: map[string][]string{"42": {"u2", "u3"}},
			names:   map[string]string{"7": "Capi"},
		},
		Clock:    f.clock,
		Location: time.UTC,
	})
	return f
}

func (f *fixture) run(cmd string, admin bool, opts map[string]string) *fakeResponder {
	rsp := &fakeResponder{}
	f.router.HandleInteraction(context.Background(), transport.Interaction{
		ID:        "i-" + cmd,
		Command:   cmd,
		GuildID:   "g1",
		ChannelID: "c1",
		UserID:    "admin",
		UserName:  "Ana",
		Locale:    "es-ES",
		Admin:     admin,
		Options:   opts,
		Responder: rsp,
	})
	return rsp
}

func TestCreateMatchRegistersArmsAndInvites(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rsp := f.run("creatematch", true, map[string]string{
		"team1": "<@&42>", "team2": "<@7>", "day": "5", "hour": "20", "minute": "30",
	})

	got := rsp.last(t)
	if !rsp.deferred || !got.followUp || got.ephemeral {
		t.Fatalf("reply = %+v deferred=%v, want public follow-up", got, rsp.deferred)
	}
	if !strings.Contains(got.text(), "ID: 1") || !strings.Contains(got.text(), "@Tigres vs @Capi") {
		t.Fatalf("reply text = %q", got.text())
	}

	m, err := f.registry.Get(1)
	if err != nil {
		t.Fatalf("registry.Get: %v", err)
	}
	want := time.Date(2025, time.March, 5, 20, 30, 0, 0, time.UTC)
	if !m.ScheduledAt.Equal(want) || m.ParticipantA != "<@&42>" || m.Locale != "es" {
		t.Fatalf("match = %+v", m)
	}
	if !reflect.DeepEqual(f.reminders.armed, []int64{1}) {
		t.Fatalf("armed = %v, want [1]", f.reminders.armed)
	}
	if len(f.broadcast.jobs) != 1 || !reflect.DeepEqual(f.broadcast.jobs[0], []string{"u2", "u3", "7"}) {
		t.Fatalf("invite recipients = %v", f.broadcast.jobs)
	}
}

func TestCreateMatchRollsIntoNextMonth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.run("creatematch", true, map[string]string{
		"team1": "A", "team2": "B", "day": "1", "hour": "9", "minute": "0",
	})
	m, err := f.registry.Get(1)
	if err != nil {
		t.Fatalf("registry.Get: %v", err)
	}
	want := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	if !m.ScheduledAt.Equal(want) {
		t.Fatalf("scheduled = %v, want %v", m.ScheduledAt, want)
	}
	if len(f.broadcast.jobs) != 0 {
		t.Fatalf("literal teams must not be messaged, got %v", f.broadcast.jobs)
	}
}

func TestCreateMatchRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts map[string]string
		want string
	}{
		{"hour out of range", map[string]string{"team1": "A", "team2": "B", "day": "5", "hour": "24", "minute": "0"},
			locale.ES.Sprintf(locale.KeyOutOfRange, "hour", 0, 23)},
		{"no such day", map[string]string{"team1": "A", "team2": "B", "day": "31", "hour": "10", "minute": "0"},
			locale.ES.Sprintf(locale.KeyInvalidDate)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			// From March 31 23:00 the 31st at 10:00 rolls into April, which has no 31st.
			f.clock.Set(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC))
			got := f.run("creatematch", true, tc.opts).last(t)
			if !got.ephemeral || got.text() != tc.want {
				t.Fatalf("reply = %q ephemeral=%v, want %q", got.text(), got.ephemeral, tc.want)
			}
			if f.registry.Len() != 0 {
				t.Fatalf("registry len = %d, want 0", f.registry.Len())
			}
		})
	}
}

func TestAdminCommandRefusedAndAudited(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	got := f.run("endmatch", false, map[string]string{"match_id": "1"}).last(t)
	if !got.ephemeral || got.text() != locale.ES.Sprintf(locale.KeyNoPermission) {
		t.Fatalf("reply = %+v", got)
	}
	stats, err := f.store.CommandStats(context.Background(), "g1", 10)
	if err != nil {
		t.Fatalf("CommandStats: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "endmatch" || stats[0].Count != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAllowListRefusesOtherChannels(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.store.SaveGuildSettings(ctx, storage.GuildSettings{GuildID: "g1", AllowedChannels: []string{"c9"}}); err != nil {
		t.Fatalf("SaveGuildSettings: %v", err)
	}
	got := f.run("listmatches", false, nil).last(t)
	if !got.ephemeral || got.text() != locale.ES.Sprintf(locale.KeyChannelNotAllowed) {
		t.Fatalf("reply = %+v", got)
	}
}

func TestRecordResultUpdatesStandings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	m := f.registry.Create(match.Match{
		ParticipantA: "<@&42>", ParticipantB: "Rivales", GuildID: "g1",
		ScheduledAt: time.Date(2025, time.March, 2, 18, 0, 0, 0, time.UTC),
	})

	got := f.run("recordresult", true, map[string]string{
		"match_id": "1", "team1_score": "2", "team2_score": "1",
	}).last(t)
	if got.ephemeral || !strings.Contains(got.text(), "Tigres 2 - 1 Rivales") {
		t.Fatalf("reply = %q", got.text())
	}
	if _, err := f.registry.Get(m.ID); !errors.Is(err, match.ErrNotFound) {
		t.Fatalf("match still registered: %v", err)
	}
	if !reflect.DeepEqual(f.reminders.cancelled, []int64{m.ID}) {
		t.Fatalf("cancelled = %v", f.reminders.cancelled)
	}

	tigres, err := f.store.Team(ctx, "g1", "Tigres")
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if tigres.Points != 3 || tigres.Wins != 1 {
		t.Fatalf("Tigres = %+v, want 3 pts 1 win", tigres)
	}
	rivales, err := f.store.Team(ctx, "g1", "Rivales")
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if rivales.Points != 0 || rivales.Losses != 1 {
		t.Fatalf("Rivales = %+v, want 0 pts 1 loss", rivales)
	}
}

func TestEndMatchUnknownAndOtherGuild(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.registry.Create(match.Match{ParticipantA: "A", ParticipantB: "B", GuildID: "other"})
	got := f.run("endmatch", true, map[string]string{"match_id": "1"}).last(t)
	if !got.ephemeral || got.text() != locale.ES.Sprintf(locale.KeyMatchNotFound, 1) {
		t.Fatalf("reply = %+v", got)
	}
	if f.registry.Len() != 1 {
		t.Fatalf("foreign match removed")
	}
}

func TestDMUserForbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.gateway.err = transport.ErrForbidden

	got := f.run("dmuser", true, map[string]string{"user": "55", "message": "hola"}).last(t)
	if !got.ephemeral || got.text() != locale.ES.Sprintf(locale.KeyDMFailed, "55") {
		t.Fatalf("reply = %+v", got)
	}
	if len(f.gateway.to) != 1 || !f.gateway.to[0].IsDM() {
		t.Fatalf("destinations = %v", f.gateway.to)
	}
}

func TestDMRoleReportsCount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	got := f.run("dmrole", true, map[string]string{"role": "42", "message": "hola"}).last(t)
	if want := locale.ES.Sprintf(locale.KeyDMRoleSent, 2, 2, "@Tigres"); got.text() != want {
		t.Fatalf("reply = %q, want %q", got.text(), want)
	}
}

func TestMemberJoinNotifiesLogChannel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.store.SaveGuildSettings(ctx, storage.GuildSettings{GuildID: "g1", LogChannelID: "log1", Language: "en"}); err != nil {
		t.Fatalf("SaveGuildSettings: %v", err)
	}
	f.router.HandleEvent(ctx, transport.Event{Kind: transport.EventMemberJoin, GuildID: "g1", UserID: "u9", UserName: "Leo"})

	if len(f.notifier.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(f.notifier.notices))
	}
	n := f.notifier.notices[0]
	if n.ChannelID != "log1" || n.Message.Embed == nil || n.Message.Embed.Description != locale.EN.Sprintf(locale.KeyMemberJoined, "Leo") {
		t.Fatalf("notice = %+v", n)
	}
	events, err := f.store.RecentEvents(ctx, "g1", 5)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 || events[0].Type != "member_join" {
		t.Fatalf("events = %+v", events)
	}
}

func TestParseChannelList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"", []string{}, false},
		{"123 456", []string{"123", "456"}, false},
		{"<#123>, 123 789", []string{"123", "789"}, false},
		{"123 general", nil, true},
	}
	for _, tc := range cases {
		got, err := parseChannelList(tc.in)
		if tc.wantErr {
			if !isReply(err) {
				t.Fatalf("parseChannelList(%q) err = %v, want refusal", tc.in, err)
			}
			continue
		}
		if err != nil || !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseChannelList(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"#ff0000", 0xff0000, true},
		{"00ff00", 0x00ff00, true},
		{"0x0099ff", 0x0099ff, true},
		{"blue", 0, false},
		{"#1000000", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseColor(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseColor(%q) = %#x, %v, want %#x, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSpecsCoverEveryCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var names []string
	for _, s := range f.router.Specs() {
		names = append(names, s.Name)
	}
	want := []string{
		"creatematch", "endmatch", "listmatches", "recordresult", "teamstats", "matchhistory",
		"createtournament", "tournaments", "scheduleannouncement", "setlogchannel", "setchannels",
		"dmuser", "dmrole", "customembed", "stats", "ayuda",
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("specs = %v, want %v", names, want)
	}
}

func TestStoredLanguage(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"es": "es",
		"pt": "pt",
		"fr": "",
		"":   "",
	}
	for in, want := range tests {
		if got := storedLanguage(storage.GuildSettings{Language: in}); got != want {
			t.Fatalf("storedLanguage(%q) = %q, want %q", in, got, want)
		}
	}
	if got := locale.Resolve("", storedLanguage(storage.GuildSettings{Language: "fr"}), "en"); got != locale.EN {
		t.Fatalf("Resolve with unsupported guild language = %q, want en", got)
	}
}
