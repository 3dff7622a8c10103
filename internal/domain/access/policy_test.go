package access_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-core/internal/domain/access"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

var (
	catalog = []access.Resource{
		access.ResourceCategories, access.ResourceSuppliers, access.ResourceWarehouses,
		access.ResourceProducts, access.ResourceMovements,
	}
	writes = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	reads  = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
)

func TestAllowed_AdminTodo(t *testing.T) {
	for _, r := range append(catalog, access.ResourceUsers) {
		for _, m := range append(reads, writes...) {
			assert.True(t, access.Allowed(entity.RoleAdmin, m, r), "%s %s", m, r)
		}
	}
}

func TestAllowed_VendedorLeeYCreaMovimientos(t *testing.T) {
	for _, r := range catalog {
		for _, m := range reads {
			assert.True(t, access.Allowed(entity.RoleVendedor, m, r), "%s %s", m, r)
		}
	}
	assert.True(t, access.Allowed(entity.RoleVendedor, http.MethodPost, access.ResourceMovements))
	assert.False(t, access.Allowed(entity.RoleVendedor, http.MethodPut, access.ResourceMovements))
	assert.False(t, access.Allowed(entity.RoleVendedor, http.MethodPatch, access.ResourceMovements))
	assert.False(t, access.Allowed(entity.RoleVendedor, http.MethodDelete, access.ResourceMovements))
	assert.False(t, access.Allowed(entity.RoleVendedor, http.MethodPost, access.ResourceProducts))
	assert.False(t, access.Allowed(entity.RoleVendedor, http.MethodGet, access.ResourceUsers))
}

func TestAllowed_ConsultorSoloLectura(t *testing.T) {
	for _, r := range catalog {
		for _, m := range reads {
			assert.True(t, access.Allowed(entity.RoleConsultor, m, r))
		}
		for _, m := range writes {
			assert.False(t, access.Allowed(entity.RoleConsultor, m, r), "%s %s", m, r)
		}
	}
}

func TestAllowed_RolDesconocidoSinAcceso(t *testing.T) {
	for _, role := range []string{"", "bodeguero", "ADMIN"} {
		for _, r := range catalog {
			assert.False(t, access.Allowed(role, http.MethodGet, r), "role=%q", role)
		}
	}
}
