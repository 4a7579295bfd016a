package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDataCrunchCredentialsExplicit(t *testing.T) {
	t.Setenv("DATACRUNCH_CLIENT_ID", "env-id")
	t.Setenv("DATACRUNCH_CLIENT_SECRET", "env-secret")

	id, secret, err := DataCrunchCredentials("flag-id", "flag-secret")
	if err != nil {
		t.Fatal(err)
	}
	if id != "flag-id" || secret != "flag-secret" {
		t.Errorf("got %q/%q, want flag values", id, secret)
	}
}

func TestDataCrunchCredentialsEnv(t *testing.T) {
	t.Setenv("DATACRUNCH_CLIENT_ID", "env-id")
	t.Setenv("DATACRUNCH_CLIENT_SECRET", "env-secret")

	id, secret, err := DataCrunchCredentials("", "")
	if err != nil {
		t.Fatal(err)
	}
	if id != "env-id" || secret != "env-secret" {
		t.Errorf("got %q/%q, want env values", id, secret)
	}
}

func TestDataCrunchCredentialsMissing(t *testing.T) {
	t.Setenv("DATACRUNCH_CLIENT_ID", "")
	t.Setenv("DATACRUNCH_CLIENT_SECRET", "")

	_, _, err := DataCrunchCredentials("only-id", "")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if !strings.Contains(err.Error(), "DATACRUNCH_CLIENT_ID") {
		t.Errorf("error should include guidance, got %q", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DATACRUNCH_CLIENT_ID=dotenv-id\nDATACRUNCH_CLIENT_SECRET=dotenv-secret\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATACRUNCH_CLIENT_ID", "")
	os.Unsetenv("DATACRUNCH_CLIENT_ID")
	t.Setenv("DATACRUNCH_CLIENT_SECRET", "already-set")

	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("DATACRUNCH_CLIENT_ID"); got != "dotenv-id" {
		t.Errorf("DATACRUNCH_CLIENT_ID = %q, want %q", got, "dotenv-id")
	}
	if got := os.Getenv("DATACRUNCH_CLIENT_SECRET"); got != "already-set" {
		t.Errorf("DATACRUNCH_CLIENT_SECRET = %q, want existing value kept", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestNewDataCrunch(t *testing.T) {
	src, err := New(context.Background(), "DataCrunch", Options{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if src.Name() != DataCrunch {
		t.Errorf("Name = %q, want %q", src.Name(), DataCrunch)
	}
}

func TestNewDataCrunchMissingCredentials(t *testing.T) {
	t.Setenv("DATACRUNCH_CLIENT_ID", "")
	t.Setenv("DATACRUNCH_CLIENT_SECRET", "")

	_, err := New(context.Background(), DataCrunch, Options{})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestNewAWSWithoutVerify(t *testing.T) {
	src, err := New(context.Background(), AWS, Options{
		Region:       "us-east-1",
		ClientID:     "test",
		ClientSecret: "test",
		Endpoint:     "http://localhost:4566",
	})
	if err != nil {
		t.Fatal(err)
	}
	if src.Name() != AWS {
		t.Errorf("Name = %q, want %q", src.Name(), AWS)
	}
}

func TestNewUnknown(t *testing.T) {
	_, err := New(context.Background(), "lambda", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "datacrunch, aws") {
		t.Errorf("error should list supported providers, got %q", err)
	}
}
