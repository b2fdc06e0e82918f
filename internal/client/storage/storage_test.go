package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_FileNotExist(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	v, ok, err := fs.Get(context.Background(), KeyUser)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || v != "" {
		t.Errorf("expected missing key, got %q ok=%v", v, ok)
	}
}

func TestFileStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	fs := NewFileStore(path)

	if err := fs.Set(ctx, KeyAuthToken, "tok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := fs.Set(ctx, KeyUser, `{"id":"1"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a fresh store must see the persisted values
	reopened := NewFileStore(path)
	v, ok, err := reopened.Get(ctx, KeyAuthToken)
	if err != nil || !ok || v != "tok" {
		t.Errorf("Get after reopen = %q, %v, %v; want tok", v, ok, err)
	}

	if err := reopened.Remove(ctx, KeyAuthToken); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := reopened.Remove(ctx, "missing"); err != nil {
		t.Errorf("Remove of absent key returned %v", err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var onDisk map[string]string
	if err := json.Unmarshal(buf, &onDisk); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := onDisk[KeyAuthToken]; ok {
		t.Errorf("authToken still on disk: %+v", onDisk)
	}
	if onDisk[KeyUser] != `{"id":"1"}` {
		t.Errorf("unexpected user on disk: %+v", onDisk)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	fs := NewFileStore(path)
	if _, _, err := fs.Get(ctx, KeyUser); err == nil {
		t.Error("expected decode error for corrupt file")
	}

	// later calls start from an empty document
	if _, ok, err := fs.Get(ctx, KeyUser); err != nil || ok {
		t.Errorf("Get after corrupt load = (%v, %v); want (false, nil)", ok, err)
	}
	if err := fs.Remove(ctx, KeyAuthToken); err != nil {
		t.Errorf("Remove after corrupt load: %v", err)
	}
	if err := fs.Set(ctx, KeyUser, "x"); err != nil {
		t.Fatalf("Set after corrupt load: %v", err)
	}

	v, ok, err := NewFileStore(path).Get(ctx, KeyUser)
	if err != nil || !ok || v != "x" {
		t.Errorf("reopened Get = (%q, %v, %v); want (\"x\", true, nil)", v, ok, err)
	}
}

func TestFileStore_FailedWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	// a directory in place of the target makes the final rename fail
	if err := os.Mkdir(path, 0o700); err != nil {
		t.Fatal(err)
	}
	fs := &FileStore{path: path, values: map[string]string{}, loaded: true}
	if err := fs.Set(context.Background(), KeyUser, "x"); err == nil {
		t.Fatal("expected Set to fail")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.Set(ctx, KeyChats, "[]"); err != nil {
		t.Fatal(err)
	}
	v, ok, _ := m.Get(ctx, KeyChats)
	if !ok || v != "[]" {
		t.Errorf("Get = %q, %v", v, ok)
	}
	_ = m.Remove(ctx, KeyChats)
	if _, ok, _ := m.Get(ctx, KeyChats); ok {
		t.Error("key still present after Remove")
	}
}
