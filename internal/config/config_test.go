package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTemplatesValidateStrictly(t *testing.T) {
	for _, kind := range []Kind{KindOperator, KindCell} {
		tmpl, err := Template(kind)
		if err != nil {
			t.Fatalf("template %s: %v", kind, err)
		}
		if err := ValidateBytes(kind, []byte(tmpl)); err != nil {
			t.Fatalf("template %s does not validate: %v", kind, err)
		}
	}
}

func TestValidateRejectsUnknownKeys(t *testing.T) {
	err := ValidateBytes(KindOperator, []byte("targte = \"127.0.0.1:7420\"\n"))
	if err == nil || !strings.Contains(err.Error(), "targte") {
		t.Fatalf("expected unknown key error naming targte, got %v", err)
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	err := ValidateBytes(KindCell, []byte("publish_interval = \"fast\"\n"))
	if err == nil || !strings.Contains(err.Error(), "publish_interval") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestValidateRejectsPoseMismatch(t *testing.T) {
	data := "joint_names = [\"a\", \"b\"]\nhome_pose = [0.0]\n"
	if err := ValidateBytes(KindCell, []byte(data)); err == nil {
		t.Fatal("expected home_pose/joint_names mismatch error")
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, KindCell, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Validate(KindCell, path); err != nil {
		t.Fatalf("validate written template: %v", err)
	}
	if err := WriteTemplate(path, KindCell, false); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, KindOperator, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "teaching_tools_ui") {
		t.Fatalf("expected operator template after overwrite")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("Operator"); err != nil || k != KindOperator {
		t.Fatalf("ParseKind(operator) = %q, %v", k, err)
	}
	if k, err := ParseKind("ghostsim"); err != nil || k != KindCell {
		t.Fatalf("ParseKind(ghostsim) = %q, %v", k, err)
	}
	if _, err := ParseKind("mirage"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
