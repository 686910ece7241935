// Package store provides the persistence sink for SMS send records.
//
// The gateway appends one SendRecord per successful send. Appends are
// best-effort: callers log and swallow failures, so a missing or broken sink
// never turns a delivered SMS into a failed tool invocation.
//
// Two implementations exist:
//
//   - SupabaseStore: inserts into a Supabase project's sms_sends table via
//     the PostgREST endpoint, authenticated with a service key.
//   - SQLiteStore: a local sms_sends table, for deployments without a cloud
//     sink.
//
// MockStore backs tests.
package store
