package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-core/internal/domain/access"
	apphttp "github.com/jhoicas/inventario-core/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-core/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "inventario-core-test"
	testExpMin    = 60
)

// buildTestApp construye una aplicación Fiber mínima con:
//   - AuthMiddleware para parsear el JWT y cargar locals
//   - Authorize para aplicar la política del recurso
//   - Un handler dummy que devuelve 200 si pasa los middlewares
func buildTestApp(resource access.Resource) *fiber.App {
	app := fiber.New()
	ok := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ok":   true,
			"role": apphttp.GetRole(c),
		})
	}
	app.Get("/protected", apphttp.AuthMiddleware(testJWTSecret), apphttp.Authorize(resource), ok)
	app.Post("/protected", apphttp.AuthMiddleware(testJWTSecret), apphttp.Authorize(resource), ok)
	app.Delete("/protected", apphttp.AuthMiddleware(testJWTSecret), apphttp.Authorize(resource), ok)
	return app
}

// tokenForRole genera un JWT con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// doRequest lanza una petición a /protected y devuelve la respuesta.
func doRequest(t *testing.T, app *fiber.App, method, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Authorize
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthorize_AdminEliminaMovimiento(t *testing.T) {
	app := buildTestApp(access.ResourceMovements)
	resp := doRequest(t, app, http.MethodDelete, tokenForRole(t, "admin"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "admin tiene CRUD total")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "admin", body["role"])
}

func TestAuthorize_VendedorRegistraMovimiento(t *testing.T) {
	app := buildTestApp(access.ResourceMovements)
	resp := doRequest(t, app, http.MethodPost, tokenForRole(t, "vendedor"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "vendedor puede crear movimientos")
}

func TestAuthorize_VendedorNoEliminaMovimiento(t *testing.T) {
	app := buildTestApp(access.ResourceMovements)
	resp := doRequest(t, app, http.MethodDelete, tokenForRole(t, "vendedor"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FORBIDDEN")
}

func TestAuthorize_VendedorNoCreaProducto(t *testing.T) {
	app := buildTestApp(access.ResourceProducts)
	resp := doRequest(t, app, http.MethodPost, tokenForRole(t, "vendedor"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthorize_ConsultorSoloLectura(t *testing.T) {
	app := buildTestApp(access.ResourceProducts)

	resp := doRequest(t, app, http.MethodGet, tokenForRole(t, "consultor"))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, tokenForRole(t, "consultor"))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthorize_UsuariosSoloAdmin(t *testing.T) {
	app := buildTestApp(access.ResourceUsers)
	for _, role := range []string{"vendedor", "consultor"} {
		resp := doRequest(t, app, http.MethodGet, tokenForRole(t, role))
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, role)
	}
}

func TestAuthorize_RolDesconocido_Retorna403(t *testing.T) {
	app := buildTestApp(access.ResourceProducts)
	resp := doRequest(t, app, http.MethodGet, tokenForRole(t, "bodeguero"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Token sin claim de rol → HTTP 401 MISSING_ROLE.
func TestAuthMiddleware_TokenSinRol_Retorna401(t *testing.T) {
	app := buildTestApp(access.ResourceProducts)
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	resp := doRequest(t, app, http.MethodGet, "Bearer "+tok)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_ROLE")
}

func TestAuthMiddleware_SinAuthHeader_Retorna401(t *testing.T) {
	app := buildTestApp(access.ResourceProducts)
	resp := doRequest(t, app, http.MethodGet, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_TOKEN")
}

func TestAuthMiddleware_TokenInvalido_Retorna401(t *testing.T) {
	app := buildTestApp(access.ResourceProducts)
	resp := doRequest(t, app, http.MethodGet, "Bearer token.invalido.aqui")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_TOKEN")
}

func TestAuthMiddleware_ExtraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": apphttp.GetUserID(c),
			"role":    apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, "consultor"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, "consultor", body["role"])
}
