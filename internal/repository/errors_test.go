package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !isUniqueViolation(unique) {
		t.Error("23505 should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", unique)) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("23503 should be a foreign key violation")
	}
	if isForeignKeyViolation(nil) {
		t.Error("nil is not a foreign key violation")
	}
}

func TestNotFound(t *testing.T) {
	if !errors.Is(notFound(pgx.ErrNoRows), ErrNotFound) {
		t.Error("pgx.ErrNoRows should map to ErrNotFound")
	}
	other := errors.New("timeout")
	if notFound(other) != other {
		t.Error("other errors should pass through")
	}
	if notFound(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestValidCategories(t *testing.T) {
	for _, c := range []string{"art", "ui", "3d", "other"} {
		if !ValidCategories[c] {
			t.Errorf("%q should be valid", c)
		}
	}
	for _, c := range []string{"", "Art", "memes", "animation"} {
		if ValidCategories[c] {
			t.Errorf("%q should be invalid", c)
		}
	}
}
