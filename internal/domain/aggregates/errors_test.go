package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := NotFound("repo.get", "application %s not found", "abc")
	out := Wrap(CodeInternal, "service.get", fmt.Errorf("lookup: %w", inner))
	if !IsCode(out, CodeNotFound) {
		t.Fatalf("want=%q got=%q", CodeNotFound, CodeOf(out))
	}
}

func TestErrorString(t *testing.T) {
	err := InvalidState("review", "status is %s", "completed")
	want := "review: status is completed (invalid_state)"
	if err.Error() != want {
		t.Fatalf("want=%q got=%q", want, err.Error())
	}
	if MessageOf(err) != "status is completed" {
		t.Fatalf("message: got=%q", MessageOf(err))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}
