package commands

import "xsportbot/internal/transport"

func str(name, desc string, required bool) transport.OptionSpec {
	return transport.OptionSpec{Name: name, Description: desc, Type: transport.OptionString, Required: required}
}

func intIn(name, desc string, required bool, lo, hi int) transport.OptionSpec {
	return transport.OptionSpec{Name: name, Description: desc, Type: transport.OptionInteger, Required: required, Min: lo, Max: hi}
}

func dayHourMinute() []transport.OptionSpec {
	return []transport.OptionSpec{
		intIn("day", "Day of month (1-31)", true, 1, 31),
		intIn("hour", "Hour (0-23)", true, 0, 23),
		intIn("minute", "Minute (0-59)", true, 0, 59),
	}
}

func (r *Router) registry() []Command {
	return []Command{
		{
			Spec: transport.CommandSpec{
				Name:        "creatematch",
				Description: "Create a match and remind both sides before kickoff",
				Options: append([]transport.OptionSpec{
					str("team1", "First team (name, @role or @user)", true),
					str("team2", "Second team (name, @role or @user)", true),
				}, dayHourMinute()...),
			},
			Admin:  true,
			Handle: r.createMatch,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "endmatch",
				Description: "End an active match without a result",
				Options:     []transport.OptionSpec{intIn("match_id", "Match ID", true, 0, 0)},
			},
			Admin:  true,
			Handle: r.endMatch,
		},
		{
			Spec:   transport.CommandSpec{Name: "listmatches", Description: "List active matches"},
			Handle: r.listMatches,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "recordresult",
				Description: "Record a match result and update standings",
				Options: []transport.OptionSpec{
					intIn("match_id", "Match ID", true, 0, 0),
					intIn("team1_score", "Score of team 1", true, 0, 999),
					intIn("team2_score", "Score of team 2", true, 0, 999),
				},
			},
			Admin:  true,
			Handle: r.recordResult,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "teamstats",
				Description: "Show a team record or the standings",
				Options:     []transport.OptionSpec{str("team", "Team name", false)},
			},
			Handle: r.teamStats,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "matchhistory",
				Description: "Show recent match results",
				Options:     []transport.OptionSpec{intIn("limit", "How many results (1-20)", false, 1, maxHistory)},
			},
			Handle: r.matchHistory,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "createtournament",
				Description: "Create a tournament",
				Options: []transport.OptionSpec{
					str("name", "Tournament name", true),
					intIn("start_day", "Start day (1-31)", true, 1, 31),
					intIn("end_day", "End day (1-31)", true, 1, 31),
				},
			},
			Admin:  true,
			Handle: r.createTournament,
		},
		{
			Spec:   transport.CommandSpec{Name: "tournaments", Description: "List active tournaments"},
			Handle: r.listTournaments,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "scheduleannouncement",
				Description: "Schedule an announcement in a channel",
				Options: append([]transport.OptionSpec{
					{Name: "channel", Description: "Target channel", Type: transport.OptionChannel, Required: true},
					str("message", "Announcement text", true),
				}, dayHourMinute()...),
			},
			Admin:  true,
			Handle: r.scheduleAnnouncement,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "setlogchannel",
				Description: "Set the channel that receives member notices",
				Options: []transport.OptionSpec{
					{Name: "channel", Description: "Log channel", Type: transport.OptionChannel, Required: true},
				},
			},
			Admin:  true,
			Handle: r.setLogChannel,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "setchannels",
				Description: "Restrict commands to these channel IDs (empty allows all)",
				Options:     []transport.OptionSpec{str("channel_ids", "Space separated channel IDs", false)},
			},
			Admin:  true,
			Handle: r.setChannels,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "dmuser",
				Description: "Send a direct message to a member",
				Options: []transport.OptionSpec{
					{Name: "user", Description: "Member", Type: transport.OptionUser, Required: true},
					str("message", "Message", true),
				},
			},
			Admin:  true,
			Handle: r.dmUser,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "dmrole",
				Description: "Send a direct message to every member of a role",
				Options: []transport.OptionSpec{
					{Name: "role", Description: "Role", Type: transport.OptionRole, Required: true},
					str("message", "Message", true),
				},
			},
			Admin:  true,
			Handle: r.dmRole,
		},
		{
			Spec: transport.CommandSpec{
				Name:        "customembed",
				Description: "Post a custom embed",
				Options: []transport.OptionSpec{
					str("title", "Embed title", true),
					str("description", "Embed text", true),
					str("color", "Hex color, e.g. #ff0000", false),
				},
			},
			Admin:  true,
			Handle: r.customEmbed,
		},
		{
			Spec:   transport.CommandSpec{Name: "stats", Description: "Show command usage and recent events"},
			Admin:  true,
			Handle: r.stats,
		},
		{
			Spec:   transport.CommandSpec{Name: "ayuda", Description: "Show the available commands"},
			Handle: r.help,
		},
	}
}
