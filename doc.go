// Package goSession provides login, session and lockout handling for web
// services: signed bearer tokens bound to server-side sessions in a
// relational database, one active session per user, per (username, IP)
// lockout after repeated failures, and a background janitor that expires
// idle sessions.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([Identity], [SessionInfo], [MetricsSnapshot]). Flow
// orchestration, the attempt log, the fleet lease and audit dispatch live
// under internal/. Sessions live in package session, token signing in
// package jwt, and the sweep loop in package janitor.
//
// # State
//
// The engine keeps no session or lockout state in memory. Two engines over
// the same database behave as one: the single-active-session rule is a
// partial unique index, and the lockout decision is a count over the
// login_attempts table.
//
// # Request path
//
// Authenticate verifies the token signature before touching the database,
// then slides the session in one conditional UPDATE and resolves the user
// through the host's [UserProvider].
package goSession
