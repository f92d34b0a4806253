// Package assert contains the test assertions used by the tests of the
// module. A failed assertion stops the test.
package assert

import (
	"errors"
	"strings"
	"testing"
)

func NoError(t testing.TB, err error, msg ...string) {
	t.Helper()

	if err != nil {
		if len(msg) == 0 {
			t.Fatal(err)
		}

		t.Fatal(strings.Join(msg, " "), ", error: ", err.Error())
	}
}

func Error(t testing.TB, err error, msg ...string) {
	t.Helper()

	if err == nil {
		if len(msg) == 0 {
			t.Fatal("expected an error but got nil")
		}

		t.Fatal(strings.Join(msg, " "), ", expected an error but got nil")
	}
}

// ErrorIs fails when err does not match target according to [errors.Is].
func ErrorIs(t testing.TB, err, target error) {
	t.Helper()

	if !errors.Is(err, target) {
		t.Fatalf("expecting error matching '%v', got: '%v'", target, err)
	}
}

func Equal[T comparable](t testing.TB, expected, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("Not equal, expecting '%v', got: '%v'", expected, actual)
	}
}

func NotEqual[T comparable](t testing.TB, expected, actual T) {
	t.Helper()
	if expected == actual {
		t.Fatalf("expecting not equal values, got: '%v'", expected)
	}
}

func Contains(t testing.TB, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("expecting %q to contain %q", s, substr)
	}
}
