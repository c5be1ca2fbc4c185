package aggregates

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/xai-decision-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	err := MapError("op", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	if !domainagg.IsCode(err, domainagg.CodeInvalidState) {
		t.Fatalf("expected invalid_state code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeValidation, "op", "bad", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_DefaultsToInternal(t *testing.T) {
	err := MapError("op", errors.New("disk on fire"))
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("expected internal code, got %q", domainagg.CodeOf(err))
	}
}
