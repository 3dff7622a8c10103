package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isForeignKeyViolation 23503: la fila referenciada no existe o aún tiene referencias (RESTRICT).
func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

// isLockError lock_not_available (55P03), deadlock_detected (40P01) o serialization_failure (40001).
func isLockError(err error) bool {
	switch pgCode(err) {
	case "55P03", "40P01", "40001":
		return true
	}
	return false
}

// isUUID las claves primarias son UUID; otro valor no puede existir en ninguna tabla.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// mapError traduce el error del driver a un error de dominio conservando la operación.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isLockError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrLockTimeout)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicate)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, domain.ErrReferenced)
	case pgCode(err) == "23514": // check_violation: stock_actual >= 0 o quantity > 0
		return fmt.Errorf("%s: %w", op, domain.ErrNegativeStock)
	case pgCode(err) == "22P02": // invalid_text_representation: id que no es UUID
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// orderClause traduce OrderBy (ya validado) a columnas SQL; campos desconocidos usan el orden por defecto.
func orderClause(orderBy string, columns map[string]string, def string) string {
	field, desc := repository.SplitOrder(orderBy)
	col, ok := columns[field]
	if !ok {
		return def
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// limitArg Limit 0 significa sin límite: LIMIT NULL en PostgreSQL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
