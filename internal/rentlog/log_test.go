package rentlog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dmitriwamback/cs-dge-library-system/internal/fs"
	"github.com/dmitriwamback/cs-dge-library-system/internal/rentlog"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func openLog(t *testing.T, dir, id string) *rentlog.Log {
	t.Helper()

	l, err := rentlog.Open(fs.NewReal(), dir, id)
	if err != nil {
		t.Fatalf("Open(%q): %v", id, err)
	}

	return l
}

func mustAppend(t *testing.T, l *rentlog.Log, events ...rentlog.Event) {
	t.Helper()

	for _, e := range events {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append(%+v): %v", e, err)
		}
	}
}

func ev(kind rentlog.Kind, isbn, title string, minute int) rentlog.Event {
	return rentlog.Event{Time: t0.Add(time.Duration(minute) * time.Minute), Kind: kind, ISBN: isbn, Title: title}
}

// equalTime compares instants, ignoring location and monotonic readings.
var equalTime = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func TestLog_Append_Then_ReadAll_Preserves_Order(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	l := openLog(t, dir, "s1")

	want := []rentlog.Event{
		ev(rentlog.Rent, "978-0", "Dune", 0),
		ev(rentlog.Rent, "978-1", "Ünïcode Títle", 1),
		ev(rentlog.Return, "978-0", "Dune", 2),
		ev(rentlog.Rent, "978-2", "", 3),
	}

	mustAppend(t, l, want...)

	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if diff := cmp.Diff(want, got, equalTime); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	if got, want := l.Path(), filepath.Join(dir, "s1.bin"); got != want {
		t.Fatalf("Path=%q, want %q", got, want)
	}
}

func TestLog_ReadAll_Missing_File_Is_Empty(t *testing.T) {
	t.Parallel()

	l := openLog(t, t.TempDir(), "nobody")

	got, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("ReadAll returned %d events, want 0", len(got))
	}
}

func TestLog_Record_Layout_Is_Big_Endian(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l := openLog(t, dir, "s1")

	mustAppend(t, l, rentlog.Event{Time: time.UnixMilli(0x0102), Kind: rentlog.Return, ISBN: "AB", Title: "C"})

	got, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	want := []byte{
		0, 0, 0, 0, 0, 0, 0x01, 0x02,
		1,
		0, 2, 'A', 'B',
		0, 1, 'C',
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestLog_Scan_Drops_Malformed_Tail(t *testing.T) {
	t.Parallel()

	good := []rentlog.Event{ev(rentlog.Rent, "X", "Ex", 0), ev(rentlog.Rent, "Y", "Why", 1)}

	tests := []struct {
		name string
		tail []byte
	}{
		{"PartialTimestamp", []byte{0, 0, 1}},
		{"PartialString", []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 9, 'a', 'b'}},
		{"UnknownKind", []byte{0, 0, 0, 0, 0, 0, 0, 1, 7, 0, 0, 0, 0}},
		{"InvalidUTF8", []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0xff, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := openLog(t, t.TempDir(), "s1")
			mustAppend(t, l, good...)

			f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, 0)
			if err != nil {
				t.Fatalf("open: %v", err)
			}

			if _, err := f.Write(tt.tail); err != nil {
				t.Fatalf("write tail: %v", err)
			}

			_ = f.Close()

			res, err := l.Scan()
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}

			if diff := cmp.Diff(good, res.Events, equalTime); diff != "" {
				t.Fatalf("events mismatch (-want +got):\n%s", diff)
			}

			if got, want := res.Discarded, len(tt.tail); got != want {
				t.Fatalf("Discarded=%d, want %d", got, want)
			}

			if res.Reason == nil {
				t.Fatal("Reason=nil, want decode reason")
			}

			events, err := l.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}

			if len(events) != len(good) {
				t.Fatalf("ReadAll returned %d events, want %d", len(events), len(good))
			}
		})
	}
}

func TestLog_Append_Rejects_Invalid_Events(t *testing.T) {
	t.Parallel()

	l := openLog(t, t.TempDir(), "s1")

	tests := []struct {
		name string
		e    rentlog.Event
	}{
		{"LongTitle", rentlog.Event{Time: t0, Kind: rentlog.Rent, ISBN: "1", Title: strings.Repeat("x", 65536)}},
		{"UnknownKind", rentlog.Event{Time: t0, Kind: 5, ISBN: "1", Title: "t"}},
		{"BadUTF8", rentlog.Event{Time: t0, Kind: rentlog.Rent, ISBN: "\xff", Title: "t"}},
	}

	for _, tt := range tests {
		err := l.Append(tt.e)
		if !errors.Is(err, rentlog.ErrInvalidArgument) {
			t.Fatalf("%s: err=%v, want %v", tt.name, err, rentlog.ErrInvalidArgument)
		}
	}

	if _, err := os.Stat(l.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("log file created by rejected appends (stat err=%v)", err)
	}
}

func TestOpen_Rejects_Unusable_Patron_IDs(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"", "   ", ".", "..", "a/b", `a\b`, "../escape", "s\xff1"} {
		_, err := rentlog.Open(fs.NewReal(), t.TempDir(), id)
		if !errors.Is(err, rentlog.ErrInvalidArgument) {
			t.Fatalf("Open(%q): err=%v, want %v", id, err, rentlog.ErrInvalidArgument)
		}
	}
}

func TestValidateText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "Empty", value: ""},
		{name: "Unicode", value: "Der Zauberberg – Ü"},
		{name: "MaxLength", value: strings.Repeat("a", 65535)},
		{name: "TooLong", value: strings.Repeat("a", 65536), wantErr: true},
		{name: "InvalidUTF8", value: "Bad\xffTitle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := rentlog.ValidateText(tt.value)
			if got := errors.Is(err, rentlog.ErrInvalidArgument); got != tt.wantErr {
				t.Fatalf("ValidateText: err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestEvent_Pretty(t *testing.T) {
	t.Parallel()

	e := rentlog.Event{Time: t0, Kind: rentlog.Return, ISBN: "978-0", Title: "Dune"}

	if got, want := e.Pretty(time.UTC), "2025-03-14 09:26:53 - RETURN - Dune (978-0)"; got != want {
		t.Fatalf("Pretty=%q, want %q", got, want)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	if got, want := e.Pretty(tokyo), "2025-03-14 18:26:53 - RETURN - Dune (978-0)"; got != want {
		t.Fatalf("Pretty(JST)=%q, want %q", got, want)
	}
}
