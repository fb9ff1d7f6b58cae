package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestConfig() {
	viper.Set("jwt.secret_key", "test-secret-key")
	viper.Set("jwt.expiry_hours", 23)
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
}

func TestAuthService_Register(t *testing.T) {
	setupAuthTestConfig()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuthService(db, nil)

	t.Run("successful registration", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM users WHERE email = \\$1").
			WithArgs("new@example.com").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("New User", "new@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		body, _ := json.Marshal(RegisterRequest{Name: "New User", Email: "new@example.com", Password: "password123"})
		w := httptest.NewRecorder()

		service.Register(w, httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp AuthResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, 5, resp.User.ID)
		assert.Equal(t, "new@example.com", resp.User.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM users WHERE email = \\$1").
			WithArgs("taken@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		body, _ := json.Marshal(RegisterRequest{Name: "Someone", Email: "taken@example.com", Password: "password123"})
		w := httptest.NewRecorder()

		service.Register(w, httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email is normalized", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM users WHERE email = \\$1").
			WithArgs("mixed@example.com").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Mixed Case", "mixed@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))

		body, _ := json.Marshal(RegisterRequest{Name: "Mixed Case", Email: "Mixed@Example.COM", Password: "password123"})
		w := httptest.NewRecorder()

		service.Register(w, httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("weak password rejected", func(t *testing.T) {
		body, _ := json.Marshal(RegisterRequest{Name: "Short", Email: "short@example.com", Password: "123"})
		w := httptest.NewRecorder()

		service.Register(w, httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	setupAuthTestConfig()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuthService(db, nil)

	t.Run("successful login", func(t *testing.T) {
		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("SELECT id, name, email, role, password FROM users WHERE email = \\$1").
			WithArgs("user@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "password"}).
				AddRow(1, "Test User", "user@example.com", "user", hashed))

		body, _ := json.Marshal(LoginRequest{Email: "user@example.com", Password: "password123"})
		w := httptest.NewRecorder()

		service.Login(w, httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp AuthResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Test User", resp.User.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		hashed, err := hashPassword("password123")
		require.NoError(t, err)

		mock.ExpectQuery("SELECT id, name, email, role, password FROM users WHERE email = \\$1").
			WithArgs("user@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "password"}).
				AddRow(1, "Test User", "user@example.com", "user", hashed))

		body, _ := json.Marshal(LoginRequest{Email: "user@example.com", Password: "wrongpassword"})
		w := httptest.NewRecorder()

		service.Login(w, httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email gets the same reply as a wrong password", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, role, password FROM users WHERE email = \\$1").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		body, _ := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "password123"})
		w := httptest.NewRecorder()

		service.Login(w, httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "Invalid email or password", resp.Error)
	})

	t.Run("invalid body", func(t *testing.T) {
		w := httptest.NewRecorder()

		service.Login(w, httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString("not json")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_Logout(t *testing.T) {
	setupAuthTestConfig()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("denylists the presented token", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		service := NewAuthService(db, redisClient)

		redisMock.ExpectSet("denylist:sometoken", "1", 23*time.Hour).SetVal("OK")

		r := httptest.NewRequest("POST", "/auth/logout", nil)
		r.Header.Set("Authorization", "Bearer sometoken")
		w := httptest.NewRecorder()

		service.Logout(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("succeeds without a token or redis", func(t *testing.T) {
		service := NewAuthService(db, nil)

		w := httptest.NewRecorder()
		service.Logout(w, httptest.NewRequest("POST", "/auth/logout", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthService_GetUserAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuthService(db, nil)

	t.Run("returns the profile", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, role, created_at FROM users WHERE id = \\$1").
			WithArgs("1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at"}).
				AddRow(1, "Test User", "user@example.com", "user", time.Now()))

		r := httptest.NewRequest("GET", "/auth/account", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", "1"))
		w := httptest.NewRecorder()

		service.GetUserAccount(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, role, created_at FROM users WHERE id = \\$1").
			WithArgs("99").
			WillReturnError(sql.ErrNoRows)

		r := httptest.NewRequest("GET", "/auth/account", nil)
		r = r.WithContext(context.WithValue(r.Context(), "userID", "99"))
		w := httptest.NewRecorder()

		service.GetUserAccount(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing context", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.GetUserAccount(w, httptest.NewRequest("GET", "/auth/account", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setupAuthTestConfig()

	hashed, err := hashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hashed)

	assert.True(t, verifyPassword("password123", hashed))
	assert.False(t, verifyPassword("wrongpassword", hashed))
	assert.False(t, verifyPassword("password123", "malformed"))

	// Salted: hashing the same password twice gives different encodings.
	again, err := hashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, hashed, again)
}

func TestGenerateJWT(t *testing.T) {
	setupAuthTestConfig()

	tokenString, err := generateJWT(42, "user")
	require.NoError(t, err)

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte("test-secret-key"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["user_id"])
	assert.Equal(t, "user", claims["role"])
	assert.Greater(t, claims["exp"].(float64), float64(time.Now().Unix()))
}
