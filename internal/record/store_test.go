package record_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
	"github.com/dmitriwamback/cs-dge-library-system/internal/record"
)

type item struct {
	ID    string
	Label string
	N     int32
}

type itemCodec struct{ kind byte }

func (c itemCodec) Kind() byte { return c.kind }

func (itemCodec) Encode(w *record.Writer, v item) error {
	if err := w.String(v.ID); err != nil {
		return err
	}

	if err := w.String(v.Label); err != nil {
		return err
	}

	w.Int32(v.N)

	return nil
}

func (itemCodec) Decode(r *record.Reader) (item, error) {
	return item{ID: r.String(), Label: r.String(), N: r.Int32()}, nil
}

func itemKey(v item) string { return v.ID }

func newStore(t *testing.T, path string) *record.Store[string, item] {
	t.Helper()

	return record.New[string, item](path, itemCodec{kind: 7}, itemKey, fs.NewReal())
}

func sortedItems(s *record.Store[string, item]) []item {
	out := s.List()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func TestStore_Save_Then_Load_Restores_Same_Records(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "items.dat")

	want := []item{
		{ID: "a", Label: "alpha", N: 1},
		{ID: "b", Label: "", N: -4},
		{ID: "c", Label: "ünïcode", N: 1 << 30},
	}

	// Insertion order must not matter.
	for _, order := range [][]int{{0, 1, 2}, {2, 0, 1}} {
		s := newStore(t, path)
		for _, i := range order {
			s.Put(want[i].ID, want[i])
		}

		if err := s.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}

		loaded := newStore(t, path)
		if err := loaded.Load(); err != nil {
			t.Fatalf("Load: %v", err)
		}

		if diff := cmp.Diff(want, sortedItems(loaded)); diff != "" {
			t.Fatalf("order %v: records mismatch (-want +got):\n%s", order, diff)
		}
	}
}

func TestStore_Load_Missing_File_Yields_Empty_Store(t *testing.T) {
	t.Parallel()

	s := newStore(t, filepath.Join(t.TempDir(), "missing.dat"))
	s.Put("stale", item{ID: "stale"})

	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := s.Len(); got != 0 {
		t.Fatalf("Len=%d, want 0", got)
	}
}

func TestStore_Load_Empty_File_Yields_Empty_Store(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.dat")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	s := newStore(t, path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := s.Len(); got != 0 {
		t.Fatalf("Len=%d, want 0", got)
	}
}

func TestStore_Load_Rejects_Malformed_Snapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	goodPath := filepath.Join(dir, "good.dat")

	good := newStore(t, goodPath)
	good.Put("a", item{ID: "a", Label: "alpha", N: 1})

	if err := good.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	valid, err := os.ReadFile(goodPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"TruncatedHeader", func(b []byte) []byte { return b[:10] }},
		{"TruncatedRecord", func(b []byte) []byte { return b[:len(b)-2] }},
		{"FlippedPayloadByte", func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }},
		{"BadVersion", func(b []byte) []byte { b[4] = 9; return b }},
		{"WrongKind", func(b []byte) []byte { b[6] = 2; return b }},
		{"TrailingGarbage", func(b []byte) []byte { return append(b, 1, 2, 3) }},
		{"LegacyGarbage", func([]byte) []byte { return []byte{0xff, 0xff, 0xff, 0x7f, 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "bad.dat")
			data := tt.mutate(append([]byte(nil), valid...))

			if err := os.WriteFile(path, data, 0o644); err != nil {
				t.Fatalf("setup: %v", err)
			}

			s := newStore(t, path)
			s.Put("stale", item{ID: "stale"})

			err := s.Load()
			if !errors.Is(err, record.ErrDecode) {
				t.Fatalf("Load err=%v, want %v", err, record.ErrDecode)
			}

			if got := s.Len(); got != 0 {
				t.Fatalf("Len=%d after failed load, want 0", got)
			}
		})
	}
}

func TestStore_Load_Accepts_Legacy_Headerless_Snapshot(t *testing.T) {
	t.Parallel()

	var data []byte

	for _, v := range []item{{ID: "x", Label: "ex", N: 2}, {ID: "y", Label: "why", N: 3}} {
		var w record.Writer
		if err := (itemCodec{}).Encode(&w, v); err != nil {
			t.Fatalf("Encode: %v", err)
		}

		data = binary.LittleEndian.AppendUint32(data, uint32(len(w.Bytes())))
		data = append(data, w.Bytes()...)
	}

	path := filepath.Join(t.TempDir(), "legacy.dat")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	s := newStore(t, path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []item{{ID: "x", Label: "ex", N: 2}, {ID: "y", Label: "why", N: 3}}
	if diff := cmp.Diff(want, sortedItems(s)); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	// Saving rewrites the file in the versioned shape.
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rewritten, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if got := string(rewritten[:4]); got != "LSN1" {
		t.Fatalf("magic=%q, want %q", got, "LSN1")
	}
}

func TestStore_Save_Rejects_Oversized_String(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.dat")
	s := newStore(t, path)
	s.Put("big", item{ID: "big", Label: string(make([]byte, 70000))})

	err := s.Save()
	if !errors.Is(err, record.ErrEncode) {
		t.Fatalf("Save err=%v, want %v", err, record.ErrEncode)
	}

	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("snapshot written despite encode failure (stat err=%v)", statErr)
	}
}

func TestStore_Update_Stores_Result_Unless_Fn_Fails(t *testing.T) {
	t.Parallel()

	s := newStore(t, filepath.Join(t.TempDir(), "items.dat"))
	s.Put("a", item{ID: "a", N: 1})

	err := s.Update("a", func(v item, ok bool) (item, error) {
		if !ok {
			t.Fatal("Update: ok=false for present key")
		}

		v.N++

		return v, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	errBoom := errors.New("boom")

	err = s.Update("a", func(v item, _ bool) (item, error) {
		v.N = 100

		return v, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Update err=%v, want %v", err, errBoom)
	}

	got, _ := s.Get("a")
	if got.N != 2 {
		t.Fatalf("N=%d, want 2", got.N)
	}
}

func TestStore_List_Returns_Copy(t *testing.T) {
	t.Parallel()

	s := newStore(t, filepath.Join(t.TempDir(), "items.dat"))
	s.Put("a", item{ID: "a", N: 1})

	list := s.List()
	list[0].N = 99

	got, _ := s.Get("a")
	if got.N != 1 {
		t.Fatalf("N=%d after mutating List result, want 1", got.N)
	}
}

func TestStore_Concurrent_Put_Get_Save(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.dat")
	s := newStore(t, path)

	var wg sync.WaitGroup

	for g := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 50 {
				id := fmt.Sprintf("g%d-%d", g, i)
				s.Put(id, item{ID: id, N: int32(i)})

				if _, ok := s.Get(id); !ok {
					t.Errorf("Get(%q) missing after Put", id)
				}

				if i%10 == 0 {
					if err := s.Save(); err != nil {
						t.Errorf("Save: %v", err)
					}
				}
			}
		}()
	}

	wg.Wait()

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := newStore(t, path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := loaded.Len(), 8*50; got != want {
		t.Fatalf("Len=%d, want %d", got, want)
	}
}
