// Package session houses concrete implementations of the core.SessionStore.
// The interface itself (and the Session struct) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages (engine, router) from depending on concrete storage.
//
// The store also persists run checkpoints, keyed by session and run, so a
// suspended run can be restored later from its opaque blob.
package session
