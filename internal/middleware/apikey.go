package middleware

import (
	"net/http"

	"github.com/spf13/viper"
)

// RequireAPIKey gates administrative routes behind the static key configured
// under admin.api_key. An unset key locks the admin surface entirely.
func RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := viper.GetString("admin.api_key")
		if apiKey == "" || r.Header.Get("x-api-key") != apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
