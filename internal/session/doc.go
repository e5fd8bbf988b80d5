// Package session holds per-user token state and the rules for moving it through its lifecycle.
//
// # Token Record
//
// A [TokenRecord] is the only stateful entity of the dashboard. It starts empty, is populated by
// an authorization code exchange and is rewritten by every successful refresh:
//
//	Unauthenticated -> (exchange ok) -> Authenticated -> (refresh fails) -> Stale -> (refresh ok) -> Authenticated
//
// A failed refresh keeps the previous access token and marks the record [Stale].
//
// # Sessions
//
// A [Session] owns exactly one record, its own catalog [services.Cache] and the pending OAuth state.
// Sessions are created and looked up through a [Store]. Callers hold a session's lock for the duration
// of an action so actions on one session never interleave.
//
// # Manager
//
// [Manager] performs the exchange and refresh calls against a [services.TokenExchanger] and applies
// the results to a record. RefreshIfNeeded is the expiry monitor: it refreshes only when the token is
// within the refresh margin (60s by default) of expiry.
package session
