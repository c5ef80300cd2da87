package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "pg says no"}
}

func TestDBErrorCode(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{pgErrUniqueViolation, ErrorCodeDuplicateKey},
		{pgErrForeignKeyViolation, ErrorCodeInvalidArgument},
		{pgErrNotNullViolation, ErrorCodeValidation},
		{pgErrCheckViolation, ErrorCodeValidation},
		{pgErrInvalidTextRepresentation, ErrorCodeInvalidArgument},
		{pgErrSerializationFailure, ErrorCodeDB},
		{pgErrDeadlockDetected, ErrorCodeDB},
		{pgErrCannotConnectNow, ErrorCodeUnavailable},
		{"99999", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pgErr(c.code))
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v ok=%v, want %v", c.code, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("not pg")); ok {
		t.Fatalf("non-pg error should not map")
	}
}

func TestFromPostgres(t *testing.T) {
	err := FromPostgres(pgErr(pgErrUniqueViolation), "upsert citation")
	if !IsCode(err, ErrorCodeDuplicateKey) {
		t.Fatalf("FromPostgres code = %v", CodeOf(err))
	}
	if !IsDuplicateKey(err) {
		t.Fatalf("IsDuplicateKey should see through the wrap")
	}
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(pgErr(pgErrSerializationFailure)) {
		t.Fatalf("serialization failure should retry")
	}
	if !IsRetryable(pgErr(pgErrDeadlockDetected)) {
		t.Fatalf("deadlock should retry")
	}
	if IsRetryable(pgErr(pgErrUniqueViolation)) {
		t.Fatalf("duplicate key must not retry")
	}
	if IsRetryable(context.Canceled) || IsRetryable(context.DeadlineExceeded) {
		t.Fatalf("local cancellation must not retry")
	}
	if !IsRetryable(fmt.Errorf("tx: %w", stderrs.New("commit unexpectedly resulted in rollback"))) {
		t.Fatalf("commit rollback text should retry")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}

func TestRetryableIncludesTransientCodes(t *testing.T) {
	if !Retryable(RateLimitedf("429 from the portal")) {
		t.Fatalf("rate limited should be retryable")
	}
	if Retryable(Schemaf("unexpected shape")) {
		t.Fatalf("schema error should not be retryable")
	}
}
