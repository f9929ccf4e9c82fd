package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/storeflow-api/internal/domain"
)

// Códigos SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
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
		return code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// isWriteConflict 40001 (serialización) o 40P01 (deadlock): la transacción se puede repetir.
func isWriteConflict(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// classify traduce los conflictos de concurrencia a domain.ErrWriteConflict; el resto pasa igual.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isWriteConflict(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrWriteConflict, err)
	}
	return err
}

// nullIfEmpty para columnas TEXT opcionales (bodegas de movimientos).
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
