package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-core/internal/domain"
	apphttp "github.com/jhoicas/inventario-core/internal/interfaces/http"
)

type accessEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
	UserID  string `json:"user_id"`
}

func lastAccessEntry(t *testing.T, buf *bytes.Buffer) accessEntry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var e accessEntry
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &e))
	return e
}

func TestRequestLogger_RegistraPeticionAutenticada(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(zerolog.Nop())})
	app.Use(apphttp.RequestLogger(log))
	app.Get("/ok", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/falta", func(c *fiber.Ctx) error {
		return domain.ErrNotFound
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", tokenForRole(t, "consultor"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	e := lastAccessEntry(t, &buf)
	assert.Equal(t, "info", e.Level)
	assert.Equal(t, http.MethodGet, e.Method)
	assert.Equal(t, "/ok", e.Path)
	assert.Equal(t, http.StatusOK, e.Status)
	assert.Equal(t, testUserID, e.UserID)

	buf.Reset()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/falta", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	e = lastAccessEntry(t, &buf)
	assert.Equal(t, "debug", e.Level)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Empty(t, e.UserID)
}
