// Package transport holds the platform-neutral contracts between the bot core
// and the chat platform: outbound delivery (Gateway), lookups (Directory) and
// the inbound interaction/event feed.
package transport
