package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/clove/compiler"
	"github.com/chazu/clove/pkg/bytecode"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "chunks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(context.Background(), "1 + 2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	c, err := compiler.CompileChunk("(1 + 2) * 3")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "(1 + 2) * 3", c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "(1 + 2) * 3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Disassemble("x") != c.Disassemble("x") {
		t.Errorf("cached chunk differs:\n%s\nwant\n%s", got.Disassemble("x"), c.Disassemble("x"))
	}
}

func TestCompileCachesOnMiss(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, hit, err := s.Compile(ctx, "4 / 2")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if hit {
		t.Error("first Compile reported a hit")
	}

	c, hit, err := s.Compile(ctx, "4 / 2")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hit {
		t.Error("second Compile missed")
	}
	if c.ConstantCount() != 2 {
		t.Errorf("ConstantCount() = %d, want 2", c.ConstantCount())
	}
}

func TestCompileErrorNotCached(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, _, err := s.Compile(ctx, "(1 +")
	if _, ok := compiler.AsError(err); !ok {
		t.Fatalf("err = %v, want compile error", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after failed compile, want 0", n)
	}
}

func TestCorruptEntryIsRecompiled(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.db.Exec(
		"INSERT INTO chunks (hash, version, data, created_at) VALUES (?, ?, ?, 0)",
		Key("1"), bytecode.BytecodeVersion, []byte("garbage"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "1"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get on corrupt entry = %v, want decode error", err)
	}

	c, hit, err := s.Compile(ctx, "1")
	if err != nil || hit {
		t.Fatalf("Compile = hit %v, err %v; want fresh compile", hit, err)
	}
	if c.Constant(0) != 1 {
		t.Errorf("Constant(0) = %v", c.Constant(0))
	}
	if _, err := s.Get(ctx, "1"); err != nil {
		t.Errorf("entry not rewritten: %v", err)
	}
}

func TestStaleVersionIsMiss(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	c, _ := compiler.CompileChunk("1")
	data, _ := bytecode.Marshal(c)

	_, err := s.db.Exec(
		"INSERT INTO chunks (hash, version, data, created_at) VALUES (?, ?, ?, 0)",
		Key("1"), int(bytecode.BytecodeVersion)+1, data,
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPurge(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, src := range []string{"1", "2", "3"} {
		if _, _, err := s.Compile(ctx, src); err != nil {
			t.Fatal(err)
		}
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
	if err := s.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count() after Purge = %d, want 0", n)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Compile(context.Background(), "2 * 21"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, hit, _ := s.Compile(context.Background(), "2 * 21"); !hit {
		t.Error("cache did not survive reopen")
	}
}

func TestMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, _, err := s.Compile(context.Background(), "1"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := s.Compile(context.Background(), "1"); !hit {
		t.Error("in-memory cache missed")
	}
}

func TestKey(t *testing.T) {
	if Key("1") == Key("1 ") {
		t.Error("different sources share a key")
	}
	if len(Key("")) != 64 {
		t.Errorf("len(Key) = %d, want 64", len(Key("")))
	}
}

func TestDefaultPathEnv(t *testing.T) {
	t.Setenv("CLOVE_CACHE", "/tmp/x.db")
	if p, _ := DefaultPath(); p != "/tmp/x.db" {
		t.Errorf("DefaultPath() = %q", p)
	}
}
