package middleware

import (
	"net/http"
	"strings"

	"goldbridge/pkg/crypto"
)

// auth.go - защита мутирующих запросов API
//
// Назначение:
// Чтение состояния бота открыто, но сброс предохранителя и прочие
// мутирующие операции требуют админ-токен. В конфиге хранится только
// bcrypt-хеш токена, сам токен нигде не записывается.

// AdminAuth проверяет Bearer-токен против bcrypt-хеша.
//
// Если хеш не задан, мутирующие endpoints отключены полностью:
// отсутствие настройки безопаснее токена по умолчанию.
func AdminAuth(adminKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKeyHash == "" {
				http.Error(w, "Admin endpoints disabled. Set API_ADMIN_KEY_HASH.", http.StatusForbidden)
				return
			}

			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !crypto.TokenMatches(token, adminKeyHash) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
