// Package session holds the live state of a workout in progress.
//
// A Session is owned by exactly one Loop goroutine. Every mutation runs on that goroutine,
// so the per-exercise completion state is never observed half-updated. Network work
// (history lookups, media URLs, saves) happens elsewhere and is posted back to the loop.
package session
