// Package access decide qué puede hacer cada rol sobre cada recurso de la API.
// La decisión es una función pura de (rol, método HTTP, recurso), evaluada una sola
// vez en el borde HTTP; el ledger de stock no conoce roles.
package access

import (
	"net/http"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// Resource recurso protegido de la API.
type Resource string

// Recursos protegidos.
const (
	ResourceCategories Resource = "categories"
	ResourceSuppliers  Resource = "suppliers"
	ResourceWarehouses Resource = "warehouses"
	ResourceProducts   Resource = "products"
	ResourceMovements  Resource = "movements"
	ResourceUsers      Resource = "users"
)

// IsSafeMethod métodos de solo lectura (GET, HEAD, OPTIONS).
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Allowed devuelve true si el rol puede ejecutar method sobre resource.
//   - admin: CRUD total.
//   - vendedor: lectura de todo salvo usuarios + creación de movimientos.
//   - consultor: solo lectura (salvo usuarios).
//   - cualquier otro rol (o vacío): sin acceso.
func Allowed(role, method string, resource Resource) bool {
	switch role {
	case entity.RoleAdmin:
		return true
	case entity.RoleVendedor:
		if resource == ResourceUsers {
			return false
		}
		if IsSafeMethod(method) {
			return true
		}
		return method == http.MethodPost && resource == ResourceMovements
	case entity.RoleConsultor:
		return resource != ResourceUsers && IsSafeMethod(method)
	default:
		return false
	}
}
