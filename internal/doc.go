// Package internal contains helper utilities that are intentionally private to goSession,
// most notably opaque session token generation.
//
// # Sub-packages
//
//   - database: PostgreSQL or SQLite connection, pool tuning and schema migration through gorm
//   - dbtest: in-memory SQLite databases for package tests
//   - httpapi: gin routes exposing the Engine over HTTP
//   - lease: Redis-backed fleet lease used by the janitor
//   - rate: login attempt log and lockout evaluation
//   - users: gorm user table for deployments without their own
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
