package template

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEnsureRepositorySeedsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureRepository(dir); err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "default.json")); err != nil {
		t.Fatalf("default.json missing: %v", err)
	}
	names := ListNames(dir)
	if !reflect.DeepEqual(names, []string{"default"}) {
		t.Errorf("ListNames = %v", names)
	}

	// A populated repository is left alone.
	if err := os.Remove(filepath.Join(dir, "default.json")); err != nil {
		t.Fatal(err)
	}
	if err := SavePayload(filepath.Join(dir, "custom.json"), DefaultPayload("custom")); err != nil {
		t.Fatal(err)
	}
	if err := EnsureRepository(dir); err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "default.json")); !os.IsNotExist(err) {
		t.Error("seeding must not run when templates exist")
	}
}

func TestSaveLoadRoundTripJSON(t *testing.T) {
	dir := t.TempDir()
	payload := DefaultPayload("square")
	payload.Ratio = 1.0
	payload.BannerColor = "#223344"
	payload.CropPaddingTop = 64

	path := filepath.Join(dir, "square.json")
	if err := SavePayload(path, payload); err != nil {
		t.Fatalf("SavePayload: %v", err)
	}
	loaded, err := LoadPayload(path)
	if err != nil {
		t.Fatalf("LoadPayload: %v", err)
	}
	if !reflect.DeepEqual(loaded, Renormalize(payload, "square")) {
		t.Errorf("round trip changed the payload:\n%+v\n%+v", loaded, payload)
	}
}

func TestSaveLoadRoundTripYAML(t *testing.T) {
	dir := t.TempDir()
	payload := DefaultPayload("story")
	payload.Ratio = 9.0 / 16.0

	path := filepath.Join(dir, "story.yaml")
	if err := SavePayload(path, payload); err != nil {
		t.Fatalf("SavePayload: %v", err)
	}
	loaded, err := LoadPayload(path)
	if err != nil {
		t.Fatalf("LoadPayload: %v", err)
	}
	if loaded.Name != "story" || loaded.Ratio != payload.Ratio {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Fields) != len(payload.Fields) {
		t.Errorf("fields = %d, expected %d", len(loaded.Fields), len(payload.Fields))
	}
}

func TestLoadByName(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureRepository(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir, "default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "default" {
		t.Errorf("Name = %q", loaded.Name)
	}

	// Empty name means the builtin default, even without a repository.
	builtin, err := Load(dir, "")
	if err != nil || builtin.Name != "default" {
		t.Errorf("builtin = %+v err = %v", builtin, err)
	}

	if _, err := Load(dir, "missing"); err == nil {
		t.Error("missing template must error")
	}
}

func TestLoadPayloadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPayload(path); err == nil {
		t.Error("expected a parse error")
	}
}
