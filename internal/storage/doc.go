// Package storage is the sqlite persistence layer.
//
// It owns every durable entity: audit and activity logs, guild settings,
// teams and match results, tournaments and scheduled announcements.
// Writes are serialized through a single connection.
package storage
