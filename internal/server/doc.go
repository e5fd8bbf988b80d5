// Package server provides HTTP routing, middleware, session cookies and the CLI callback handler.
//
// # Router
//
// [BasicRouter] registers method patterns on an [http.ServeMux] and wraps each route with the
// [Middleware] added through Use. [Chain] applies middleware to a single handler.
//
// # Sessions
//
// [CookieCodec] signs a session ID into an HS256 JWT cookie. The [Sessions] middleware resolves the cookie
// to a [session.Session] in the [session.Store], creating one when needed, and holds the session lock for the
// rest of the request.
//
// # CLI Callback
//
// [CallbackHandler] serves the redirect URI during `auth login`. A temporary [Server] starts on the
// configured address, the handler validates state and exchanges the code, and the CLI shuts the server down
// once [CallbackHandler.Result] delivers. Only the first callback is processed.
package server
