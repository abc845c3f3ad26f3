package httpmw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cwrk-planet/comments-service/internal/app/session"
	"github.com/cwrk-planet/comments-service/pkg/errs"
	"github.com/cwrk-planet/comments-service/pkg/httputil"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// Auth резолвит bearer-токен через session-сервис и кладёт identity в контекст.
// required=false — токен опционален (локальная разработка без session-сервиса);
// невалидный токен отклоняется в любом режиме.
func Auth(sessions session.Client, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
				if required {
					httputil.Error(w, http.StatusUnauthorized, "missing bearer token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if sessions == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimSpace(auth[7:])
			id, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, errs.ErrUnauthorized) {
					httputil.Error(w, http.StatusUnauthorized, "invalid or expired session")
					return
				}
				slog.Error("middleware.Auth.Resolve:", slog.Any("err", err))
				if required {
					httputil.Error(w, errs.ToHTTP(err), "session service unavailable")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyIdentity, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromCtx(ctx context.Context) (session.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(session.Identity)
	return id, ok
}
