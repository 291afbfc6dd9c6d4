// Package middleware содержит HTTP middleware сервиса размещения.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const staffIDKey contextKey = "staffID"

const (
	// StaffTokenHeader - заголовок с подписанным токеном сотрудника.
	StaffTokenHeader = "X-Staff-Token"

	staffCookieName = "staff_token"
	staffCookieTTL  = 12 * time.Hour
)

// StaffMiddleware определяет сотрудника по подписанному токену из заголовка или cookie.
type StaffMiddleware struct {
	secretKey []byte
}

// NewStaffMiddleware создаёт middleware с указанным секретом.
// При пустом секрете генерируется случайный ключ: токены живут до перезапуска.
func NewStaffMiddleware(secret string) *StaffMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-staff-secret")
		}
	}

	return &StaffMiddleware{secretKey: key}
}

// Middleware требует действительный токен и кладёт идентификатор сотрудника в контекст.
func (s *StaffMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(StaffTokenHeader)
		if token == "" {
			if cookie, err := r.Cookie(staffCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		staffID, ok := s.Parse(token)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), staffIDKey, staffID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Sign возвращает токен вида "<id>.<hmac>".
func (s *StaffMiddleware) Sign(staffID int64) string {
	idStr := strconv.FormatInt(staffID, 10)
	return idStr + "." + s.signature(idStr)
}

// SetStaffCookie устанавливает cookie с токеном сотрудника.
func (s *StaffMiddleware) SetStaffCookie(w http.ResponseWriter, staffID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     staffCookieName,
		Value:    s.Sign(staffID),
		Path:     "/",
		Expires:  time.Now().Add(staffCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Parse проверяет подпись токена. Идентификатор должен быть положительным.
func (s *StaffMiddleware) Parse(token string) (int64, bool) {
	idStr, sig, found := strings.Cut(token, ".")
	if !found || strings.Contains(sig, ".") {
		return 0, false
	}

	if !hmac.Equal([]byte(sig), []byte(s.signature(idStr))) {
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *StaffMiddleware) signature(idStr string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(idStr))
	return hex.EncodeToString(mac.Sum(nil))
}

// StaffIDFromContext извлекает идентификатор сотрудника из контекста запроса.
func StaffIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(staffIDKey).(int64)
	return id, ok
}
