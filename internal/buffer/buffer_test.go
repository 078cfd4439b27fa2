package buffer

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestCloneBodyProducesIndependentReaders(t *testing.T) {
	primary, fallback, cloneable, err := CloneBody(strings.NewReader("request payload"), 0)
	if err != nil {
		t.Fatalf("CloneBody: %v", err)
	}
	if !cloneable {
		t.Fatal("expected a small body to be cloneable")
	}
	defer primary.Close()
	defer fallback.Close()

	got1, _ := io.ReadAll(primary)
	got2, _ := io.ReadAll(fallback)
	if !bytes.Equal(got1, []byte("request payload")) {
		t.Errorf("primary = %q", got1)
	}
	if !bytes.Equal(got2, []byte("request payload")) {
		t.Errorf("fallback = %q", got2)
	}
}

func TestCloneBodyNilSource(t *testing.T) {
	primary, fallback, cloneable, err := CloneBody(nil, 0)
	if err != nil {
		t.Fatalf("CloneBody: %v", err)
	}
	if !cloneable {
		t.Fatal("expected a nil body to be cloneable")
	}
	defer primary.Close()
	defer fallback.Close()

	got, _ := io.ReadAll(primary)
	if len(got) != 0 {
		t.Errorf("expected empty body clone, got %q", got)
	}
}

func TestCloneBodyOverLimitDisablesFallback(t *testing.T) {
	primary, fallback, cloneable, err := CloneBody(strings.NewReader("0123456789"), 4)
	if err != nil {
		t.Fatalf("CloneBody: %v", err)
	}
	if cloneable {
		t.Fatal("expected a body over the limit to not be cloneable")
	}
	if fallback != nil {
		t.Error("expected no fallback reader when the body exceeds the limit")
	}
	defer primary.Close()

	got, err := io.ReadAll(primary)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "0123456789" {
		t.Errorf("primary must still replay the full original body: got %q", got)
	}
}
