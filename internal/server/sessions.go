package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/releasedash/internal/session"
)

// Sessions attaches a [session.Session] to every request, creating one and setting its cookie when the
// request has no valid cookie or the session is gone. Creating a session first drops sessions whose cookie
// has expired.
//
// The session is locked for the whole request so one user's actions run one at a time.
func Sessions(store *session.Store, codec *CookieCodec, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := lookup(store, codec, r)
			if sess == nil {
				if n := store.Prune(codec.TTL()); n > 0 {
					logger.Debug("expired sessions pruned", "count", n)
				}

				sess = store.New()
				cookie, err := codec.Encode(sess.ID)
				if err != nil {
					store.Delete(sess.ID)
					logger.Error("failed to encode session cookie", "error", err)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, cookie)
				logger.Debug("session created", "session", sess.ID)
			}

			sess.Lock()
			defer sess.Unlock()

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}

func lookup(store *session.Store, codec *CookieCodec, r *http.Request) *session.Session {
	id, err := codec.Decode(r)
	if err != nil {
		return nil
	}
	sess, ok := store.Get(id)
	if !ok {
		return nil
	}
	return sess
}
