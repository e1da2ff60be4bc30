package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TokenTimes/dropsd/internal/domain"
)

func TestKV_GetMissingKey(t *testing.T) {
	kv, err := NewKV(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = kv.Get(context.Background(), "absent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestKV_SetGetRoundTrip(t *testing.T) {
	kv, err := NewKV(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	want := []byte(`{"m1":{"0":50,"1":50}}`)
	if err := kv.Set(ctx, "outcome-allocations", want); err != nil {
		t.Fatal(err)
	}

	got, err := kv.Get(ctx, "outcome-allocations")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	kv1, err := NewKV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv1.Set(ctx, "polymarket-selections", []byte(`["m1","m2"]`)); err != nil {
		t.Fatal(err)
	}

	kv2, err := NewKV(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := kv2.Get(ctx, "polymarket-selections")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `["m1","m2"]` {
		t.Errorf("reopened value = %s", got)
	}
}

func TestKV_MissingFileStartsEmpty(t *testing.T) {
	kv, err := NewKV(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if _, err := kv.Get(context.Background(), "anything"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestKV_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewKV(path); err == nil {
		t.Error("corrupt state file should surface an error")
	}
}

func TestKV_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewKV(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(context.Background(), "k", []byte(`1`)); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want only state.json", names)
	}
}
