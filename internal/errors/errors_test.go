package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}
	if got := Format(stderrors.New("boom")); got != "Error: boom" {
		t.Errorf("Format() = %q", got)
	}
	if got := Formatf("bad %d", 3); got != "Error: bad 3" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	cause := stderrors.New("disk full")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"not found", NotFound("habit %q", "Run"), KindNotFound},
		{"validation", Invalid("count must be positive"), KindValidation},
		{"persistence", Persistence("save habits", cause), KindPersistence},
		{"collaborator", Collaborator("send dm", cause), KindCollaborator},
		{"wrapped twice", fmt.Errorf("outer: %w", NotFound("x")), KindNotFound},
		{"plain", cause, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Persistence("save habits", cause)
	if !Is(err, cause) {
		t.Error("wrapped error should still match its cause")
	}
	if !strings.HasPrefix(err.Error(), "save habits") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		success bool
		kind    Kind
		msg     string
	}{
		{"nil", nil, true, KindUnknown, ""},
		{"not found", NotFound("habit %q", "Run"), false, KindNotFound, `habit "Run"`},
		{"validation", Invalid("name is required"), false, KindValidation, "name is required"},
		{"persistence hides cause", Persistence("save", stderrors.New("/tmp/x: EIO")), false, KindPersistence,
			"Failed to save your changes. Please try again later."},
		{"unknown", stderrors.New("boom"), false, KindUnknown, "Something went wrong. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResultOf(tt.err)
			if got.Success != tt.success || got.Kind != tt.kind || got.Error != tt.msg {
				t.Errorf("ResultOf() = %+v", got)
			}
		})
	}
}
