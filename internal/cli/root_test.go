package cli

import (
	"errors"
	"testing"
)

func TestRoot_NoArgsShowsHelp(t *testing.T) {
	t.Parallel()
	if err := executeRoot(t); err != nil {
		t.Errorf("bare invocation: %v", err)
	}
}

func TestRoot_UnknownFlagIsUsageError(t *testing.T) {
	t.Parallel()
	err := executeRoot(t, "--definitely-not-a-flag")
	if !errors.Is(err, ErrUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}
