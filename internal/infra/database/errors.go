package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/xavierca1/prospect-crm/internal/entity"
)

// Postgres SQLSTATE codes the gateway reports back as domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
)

// translateError maps driver errors from either pgx or lib/pq onto the
// entity sentinels, keeping the driver message in the chain.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, entity.ErrProspectNotFound)
	}

	code := ""
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	}

	switch code {
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w: %v", op, entity.ErrConflict, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w: %v", op, entity.ErrProspectNotFound, err)
	case codeCheckViolation, codeNotNullViolation, codeInvalidText:
		return fmt.Errorf("%s: %w: %v", op, entity.ErrInvalid, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
