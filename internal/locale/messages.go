package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a catalog entry. Format verbs follow fmt.
type Key string

const (
	KeyReminder              Key = "reminder"
	KeyNoPermission          Key = "no_permission"
	KeyChannelNotAllowed     Key = "channel_not_allowed"
	KeyOutOfRange            Key = "out_of_range"
	KeyInvalidDate           Key = "invalid_date"
	KeyInternalError         Key = "internal_error"
	KeyMatchCreated          Key = "match_created"
	KeyMatchInviteTitle      Key = "match_invite_title"
	KeyMatchInviteBody       Key = "match_invite_body"
	KeyMatchNotFound         Key = "match_not_found"
	KeyMatchEnded            Key = "match_ended"
	KeyNoMatches             Key = "no_matches"
	KeyMatchListTitle        Key = "match_list_title"
	KeyMatchListLine         Key = "match_list_line"
	KeyResultRecorded        Key = "result_recorded"
	KeyDraw                  Key = "draw"
	KeyTeamNotFound          Key = "team_not_found"
	KeyTeamStats             Key = "team_stats"
	KeyStandingsTitle        Key = "standings_title"
	KeyStandingsLine         Key = "standings_line"
	KeyNoTeams               Key = "no_teams"
	KeyHistoryTitle          Key = "history_title"
	KeyHistoryLine           Key = "history_line"
	KeyNoHistory             Key = "no_history"
	KeyTournamentCreated     Key = "tournament_created"
	KeyTournamentsTitle      Key = "tournaments_title"
	KeyTournamentLine        Key = "tournament_line"
	KeyNoTournaments         Key = "no_tournaments"
	KeyAnnouncementScheduled Key = "announcement_scheduled"
	KeyLogChannelSet         Key = "log_channel_set"
	KeyChannelsSet           Key = "channels_set"
	KeyChannelsCleared       Key = "channels_cleared"
	KeyInvalidChannelList    Key = "invalid_channel_list"
	KeyDMSent                Key = "dm_sent"
	KeyDMFailed              Key = "dm_failed"
	KeyDMRoleSent            Key = "dm_role_sent"
	KeyStatsTitle            Key = "stats_title"
	KeyStatsCommands         Key = "stats_commands"
	KeyStatsEvents           Key = "stats_events"
	KeyNone                  Key = "none"
	KeyMemberJoined          Key = "member_joined"
	KeyMemberLeft            Key = "member_left"
	KeyHelpTitle             Key = "help_title"
	KeyHelpGeneral           Key = "help_general"
	KeyHelpAdmin             Key = "help_admin"
)

var entries = map[Tag]map[Key]string{
	ES: {
		KeyReminder:              "🔔 **Recordatorio de Partido**\n\n**%s vs %s**\n¡Comienza en %d minutos!\n\n📅 %s",
		KeyNoPermission:          "❌ No tienes permisos para usar este comando.",
		KeyChannelNotAllowed:     "❌ Este comando no está permitido en este canal.",
		KeyOutOfRange:            "❌ %s debe estar entre %d y %d.",
		KeyInvalidDate:           "❌ La fecha indicada no existe.",
		KeyInternalError:         "❌ Ocurrió un error. Inténtalo de nuevo más tarde.",
		KeyMatchCreated:          "✅ Partido creado (ID: %d)\n**%s vs %s**\n📅 %s",
		KeyMatchInviteTitle:      "🏆 Nuevo Partido",
		KeyMatchInviteBody:       "Has sido convocado para **%s vs %s**\n📅 %s",
		KeyMatchNotFound:         "❌ No se encontró el partido con ID %d.",
		KeyMatchEnded:            "✅ Partido %d finalizado.",
		KeyNoMatches:             "📭 No hay partidos activos.",
		KeyMatchListTitle:        "📋 Partidos Activos",
		KeyMatchListLine:         "**#%d** %s vs %s · %s",
		KeyResultRecorded:        "🏁 **Resultado registrado**\n**%s %d - %d %s**\nGanador: %s",
		KeyDraw:                  "Empate",
		KeyTeamNotFound:          "❌ No se encontró el equipo %s.",
		KeyTeamStats:             "📊 **%s**\nPuntos: %d\nVictorias: %d\nDerrotas: %d\nEmpates: %d",
		KeyStandingsTitle:        "🏆 Clasificación",
		KeyStandingsLine:         "%s **%s** · %d pts (%dV %dE %dD)",
		KeyNoTeams:               "📭 Aún no hay equipos registrados.",
		KeyHistoryTitle:          "📜 Historial de Partidos",
		KeyHistoryLine:           "%s %d - %d %s · %s",
		KeyNoHistory:             "📭 No hay partidos registrados.",
		KeyTournamentCreated:     "🏆 Torneo **%s** creado\n📅 %s → %s",
		KeyTournamentsTitle:      "🏆 Torneos Activos",
		KeyTournamentLine:        "**%s** · %s → %s",
		KeyNoTournaments:         "📭 No hay torneos activos.",
		KeyAnnouncementScheduled: "✅ Anuncio programado para %s en <#%s>.",
		KeyLogChannelSet:         "✅ Canal de registro establecido: <#%s>",
		KeyChannelsSet:           "✅ Canales permitidos actualizados (%d).",
		KeyChannelsCleared:       "✅ Los comandos están permitidos en todos los canales.",
		KeyInvalidChannelList:    "❌ ID de canal inválido: %s",
		KeyDMSent:                "✅ Mensaje enviado a <@%s>.",
		KeyDMFailed:              "❌ No se pudo enviar el mensaje a <@%s>.",
		KeyDMRoleSent:            "✅ Mensaje enviado a %d de %d miembros de %s.",
		KeyStatsTitle:            "📈 Estadísticas del Servidor",
		KeyStatsCommands:         "Comandos más usados",
		KeyStatsEvents:           "Eventos recientes",
		KeyNone:                  "Ninguno",
		KeyMemberJoined:          "📥 %s se unió al servidor.",
		KeyMemberLeft:            "📤 %s salió del servidor.",
		KeyHelpTitle:             "📖 Ayuda de xSportBS",
		KeyHelpGeneral:           "Comandos generales",
		KeyHelpAdmin:             "Comandos de administración",
	},
	EN: {
		KeyReminder:              "🔔 **Match Reminder**\n\n**%s vs %s**\nStarts in %d minutes!\n\n📅 %s",
		KeyNoPermission:          "❌ You don't have permission to use this command.",
		KeyChannelNotAllowed:     "❌ This command is not allowed in this channel.",
		KeyOutOfRange:            "❌ %s must be between %d and %d.",
		KeyInvalidDate:           "❌ That date does not exist.",
		KeyInternalError:         "❌ Something went wrong. Please try again later.",
		KeyMatchCreated:          "✅ Match created (ID: %d)\n**%s vs %s**\n📅 %s",
		KeyMatchInviteTitle:      "🏆 New Match",
		KeyMatchInviteBody:       "You have been called up for **%s vs %s**\n📅 %s",
		KeyMatchNotFound:         "❌ No match found with ID %d.",
		KeyMatchEnded:            "✅ Match %d ended.",
		KeyNoMatches:             "📭 There are no active matches.",
		KeyMatchListTitle:        "📋 Active Matches",
		KeyMatchListLine:         "**#%d** %s vs %s · %s",
		KeyResultRecorded:        "🏁 **Result recorded**\n**%s %d - %d %s**\nWinner: %s",
		KeyDraw:                  "Draw",
		KeyTeamNotFound:          "❌ Team %s not found.",
		KeyTeamStats:             "📊 **%s**\nPoints: %d\nWins: %d\nLosses: %d\nDraws: %d",
		KeyStandingsTitle:        "🏆 Standings",
		KeyStandingsLine:         "%s **%s** · %d pts (%dW %dD %dL)",
		KeyNoTeams:               "📭 No teams recorded yet.",
		KeyHistoryTitle:          "📜 Match History",
		KeyHistoryLine:           "%s %d - %d %s · %s",
		KeyNoHistory:             "📭 No matches recorded.",
		KeyTournamentCreated:     "🏆 Tournament **%s** created\n📅 %s → %s",
		KeyTournamentsTitle:      "🏆 Active Tournaments",
		KeyTournamentLine:        "**%s** · %s → %s",
		KeyNoTournaments:         "📭 There are no active tournaments.",
		KeyAnnouncementScheduled: "✅ Announcement scheduled for %s in <#%s>.",
		KeyLogChannelSet:         "✅ Log channel set: <#%s>",
		KeyChannelsSet:           "✅ Allowed channels updated (%d).",
		KeyChannelsCleared:       "✅ Commands are allowed in every channel.",
		KeyInvalidChannelList:    "❌ Invalid channel ID: %s",
		KeyDMSent:                "✅ Message sent to <@%s>.",
		KeyDMFailed:              "❌ Could not send the message to <@%s>.",
		KeyDMRoleSent:            "✅ Message sent to %d of %d members of %s.",
		KeyStatsTitle:            "📈 Server Statistics",
		KeyStatsCommands:         "Most used commands",
		KeyStatsEvents:           "Recent events",
		KeyNone:                  "None",
		KeyMemberJoined:          "📥 %s joined the server.",
		KeyMemberLeft:            "📤 %s left the server.",
		KeyHelpTitle:             "📖 xSportBS Help",
		KeyHelpGeneral:           "General commands",
		KeyHelpAdmin:             "Admin commands",
	},
	PT: {
		KeyReminder:              "🔔 **Lembrete de Partida**\n\n**%s vs %s**\nComeça em %d minutos!\n\n📅 %s",
		KeyNoPermission:          "❌ Você não tem permissão para usar este comando.",
		KeyChannelNotAllowed:     "❌ Este comando não é permitido neste canal.",
		KeyOutOfRange:            "❌ %s deve estar entre %d e %d.",
		KeyInvalidDate:           "❌ Essa data não existe.",
		KeyInternalError:         "❌ Ocorreu um erro. Tente novamente mais tarde.",
		KeyMatchCreated:          "✅ Partida criada (ID: %d)\n**%s vs %s**\n📅 %s",
		KeyMatchInviteTitle:      "🏆 Nova Partida",
		KeyMatchInviteBody:       "Você foi convocado para **%s vs %s**\n📅 %s",
		KeyMatchNotFound:         "❌ Nenhuma partida encontrada com ID %d.",
		KeyMatchEnded:            "✅ Partida %d encerrada.",
		KeyNoMatches:             "📭 Não há partidas ativas.",
		KeyMatchListTitle:        "📋 Partidas Ativas",
		KeyMatchListLine:         "**#%d** %s vs %s · %s",
		KeyResultRecorded:        "🏁 **Resultado registrado**\n**%s %d - %d %s**\nVencedor: %s",
		KeyDraw:                  "Empate",
		KeyTeamNotFound:          "❌ Equipe %s não encontrada.",
		KeyTeamStats:             "📊 **%s**\nPontos: %d\nVitórias: %d\nDerrotas: %d\nEmpates: %d",
		KeyStandingsTitle:        "🏆 Classificação",
		KeyStandingsLine:         "%s **%s** · %d pts (%dV %dE %dD)",
		KeyNoTeams:               "📭 Ainda não há equipes registradas.",
		KeyHistoryTitle:          "📜 Histórico de Partidas",
		KeyHistoryLine:           "%s %d - %d %s · %s",
		KeyNoHistory:             "📭 Nenhuma partida registrada.",
		KeyTournamentCreated:     "🏆 Torneio **%s** criado\n📅 %s → %s",
		KeyTournamentsTitle:      "🏆 Torneios Ativos",
		KeyTournamentLine:        "**%s** · %s → %s",
		KeyNoTournaments:         "📭 Não há torneios ativos.",
		KeyAnnouncementScheduled: "✅ Anúncio agendado para %s em <#%s>.",
		KeyLogChannelSet:         "✅ Canal de registro definido: <#%s>",
		KeyChannelsSet:           "✅ Canais permitidos atualizados (%d).",
		KeyChannelsCleared:       "✅ Os comandos são permitidos em todos os canais.",
		KeyInvalidChannelList:    "❌ ID de canal inválido: %s",
		KeyDMSent:                "✅ Mensagem enviada para <@%s>.",
		KeyDMFailed:              "❌ Não foi possível enviar a mensagem para <@%s>.",
		KeyDMRoleSent:            "✅ Mensagem enviada para %d de %d membros de %s.",
		KeyStatsTitle:            "📈 Estatísticas do Servidor",
		KeyStatsCommands:         "Comandos mais usados",
		KeyStatsEvents:           "Eventos recentes",
		KeyNone:                  "Nenhum",
		KeyMemberJoined:          "📥 %s entrou no servidor.",
		KeyMemberLeft:            "📤 %s saiu do servidor.",
		KeyHelpTitle:             "📖 Ajuda do xSportBS",
		KeyHelpGeneral:           "Comandos gerais",
		KeyHelpAdmin:             "Comandos de administração",
	},
}

var printers = buildPrinters()

func buildPrinters() map[Tag]*message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	for tag, msgs := range entries {
		for k, v := range msgs {
			if err := b.SetString(tag.language(), string(k), v); err != nil {
				panic(err)
			}
		}
	}
	out := make(map[Tag]*message.Printer, len(tags))
	for _, t := range tags {
		out[t] = message.NewPrinter(t.language(), message.Catalog(b))
	}
	return out
}

// Sprintf renders key in tag's language.
func (t Tag) Sprintf(key Key, args ...any) string {
	p, ok := printers[t]
	if !ok {
		p = printers[Default]
	}
	return p.Sprintf(string(key), args...)
}

// Reminder is the text sent to match participants before kick-off.
func Reminder(tag Tag, a, b string, minutes int, when string) string {
	return tag.Sprintf(KeyReminder, a, b, minutes, when)
}
