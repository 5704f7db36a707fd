package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient_TransientError(t *testing.T) {
	err := fmt.Errorf("load: %w", NewTransientError(errors.New("busy")))
	if !IsTransient(err) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("column \"foo\" does not exist")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_PgError(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"53300", true},
		{"57P01", true},
		{"57P03", true},
		{"08006", true},
		{"08001", true},
		{"23505", false},
		{"42P01", false},
		{"23503", false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("copy: %w", &pgconn.PgError{Code: tt.code, Message: "boom"})
		if got := IsTransient(err); got != tt.want {
			t.Errorf("code %s: expected %v, got %v", tt.code, tt.want, got)
		}
	}
}

func TestIsTransient_Syscall(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if !IsTransient(fmt.Errorf("dial tcp: %w", errno)) {
			t.Errorf("%v should be transient", errno)
		}
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_Patterns(t *testing.T) {
	for _, msg := range []string{
		"database is locked (5) (SQLITE_BUSY)",
		"read tcp: i/o timeout",
		"write: broken pipe",
		"unexpected EOF",
	} {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("%q should be transient", msg)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner)
	if !errors.Is(te, inner) {
		t.Error("expected Unwrap to expose inner error")
	}
	if te.Error() != "root cause" {
		t.Errorf("unexpected message %q", te.Error())
	}
}
