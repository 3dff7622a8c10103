package repository

import (
	"strings"

	"github.com/jhoicas/inventario-core/internal/domain"
)

// ListFilter parámetros comunes de búsqueda, ordenamiento y paginación.
// OrderBy ya viene validado contra la lista blanca del recurso ("-" = descendente).
type ListFilter struct {
	Search  string
	OrderBy string
	Limit   int
	Offset  int
}

// ProductFilter agrega el umbral de stock (stock_actual < StockBelow).
type ProductFilter struct {
	ListFilter
	StockBelow *int
}

// NewListFilter construye el filtro validando ordering contra los campos permitidos.
// Ordering vacío deja OrderBy vacío y cada repositorio aplica su orden por defecto.
func NewListFilter(search, ordering string, limit, offset int, allowed ...string) (ListFilter, error) {
	f := ListFilter{Search: strings.TrimSpace(search), Limit: limit, Offset: offset}
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return f, nil
	}
	field := strings.TrimPrefix(ordering, "-")
	for _, a := range allowed {
		if a == field {
			f.OrderBy = ordering
			return f, nil
		}
	}
	return f, domain.NewValidationError("ordering",
		"Campo de orden no permitido. Use: "+strings.Join(allowed, ", ")+".")
}

// SplitOrder separa "-campo" en (campo, desc).
func SplitOrder(orderBy string) (field string, desc bool) {
	if strings.HasPrefix(orderBy, "-") {
		return orderBy[1:], true
	}
	return orderBy, false
}
