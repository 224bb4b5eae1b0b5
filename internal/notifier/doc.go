// Package notifier posts operator notices (member joins/leaves, bot lifecycle)
// to guild log channels through an async queue with pacing, retry and
// duplicate suppression. Notices are best-effort: a full queue drops them.
package notifier
