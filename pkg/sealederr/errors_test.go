package sealederr

import (
	"errors"
	"strings"
	"testing"
)

func TestPathString(t *testing.T) {
	cases := []struct {
		path Path
		want string
	}{
		{Path{}, "<root>"},
		{Path{"script"}, "script"},
		{Path{"script", 0}, "script.[0]"},
		{Path{"script", 0, "then", 2}, "script.[0].then.[2]"},
	}
	for _, c := range cases {
		if got := c.path.String(); got != c.want {
			t.Errorf("Path(%v).String() = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestPathKeyDistinguishesStringFromInt(t *testing.T) {
	stringPath := Path{"0"}
	intPath := Path{0}
	if stringPath.Key() == intPath.Key() {
		t.Error(`Path{"0"}.Key() collided with Path{0}.Key()`)
	}
}

func TestParserErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapParserError(cause, 3, 4)
	if !errors.Is(err, cause) {
		t.Error("WrapParserError did not preserve the cause for errors.Is")
	}
	if err.Line != 3 || err.Column != 4 {
		t.Errorf("position = %d:%d, want 3:4", err.Line, err.Column)
	}
}

func TestScriptErrorMessageIncludesPath(t *testing.T) {
	err := NewScriptError("bad", Path{"script", 2})
	got := err.Error()
	if got == "" {
		t.Fatal("empty error message")
	}
	if !strings.Contains(got, "script.[2]") {
		t.Errorf("Error() = %q, want it to include the path %q", got, "script.[2]")
	}
	var asScriptError *ScriptError
	if !errors.As(error(err), &asScriptError) {
		t.Fatal("errors.As failed to match *ScriptError")
	}
}

func TestNewBrokenSaveError(t *testing.T) {
	cause := errors.New("malformed json")
	err := NewBrokenSaveError(cause)
	if err.Message != ErrBrokenSave {
		t.Errorf("Message = %q, want fixed broken-save message", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("NewBrokenSaveError did not preserve the cause")
	}
}

func TestStackErrorAsScriptError(t *testing.T) {
	se := NewStackError("collision").AsScriptError(Path{"a"})
	if se.NodePath.String() != "a" {
		t.Errorf("NodePath = %v", se.NodePath)
	}
}
