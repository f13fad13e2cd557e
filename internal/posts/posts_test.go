package posts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RenanCampista/post-link-finder/internal/network"
)

func readString(t *testing.T, s string) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return tbl
}

func TestReadPadsShortRows(t *testing.T) {
	tbl := readString(t, "\ufeffid,text,url\n1,hello\n2,\"a, b\",x,extra\n")
	if got := strings.Join(tbl.Header, ","); got != "id,text,url" {
		t.Errorf("Header = %q", got)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if len(tbl.Rows[0]) != 3 || tbl.Rows[0][2] != "" {
		t.Errorf("short row not padded: %q", tbl.Rows[0])
	}
	if len(tbl.Rows[1]) != 3 || tbl.Rows[1][1] != "a, b" {
		t.Errorf("long row not trimmed: %q", tbl.Rows[1])
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Error("Read() of empty input succeeded")
	}
}

func TestLookup(t *testing.T) {
	tbl := NewTable([]string{"Caption", "URL", "message"})
	tests := []struct {
		names   []string
		want    int
		wantErr bool
	}{
		{[]string{"message", "Caption"}, 2, false},
		{[]string{"caption"}, 0, false},
		{[]string{"postUrl", "url"}, 1, false},
		{[]string{"username", "Username"}, -1, true},
	}
	for _, tt := range tests {
		got, err := tbl.Lookup(tt.names...)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Lookup(%v) error = %v, wantErr %v", tt.names, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrMissingColumn) {
			t.Errorf("Lookup(%v) error = %v, want ErrMissingColumn", tt.names, err)
		}
		if got != tt.want {
			t.Errorf("Lookup(%v) = %d, want %d", tt.names, got, tt.want)
		}
	}
}

func TestEnsureColumn(t *testing.T) {
	tbl := readString(t, "a,b\n1,2\n")
	i := tbl.EnsureColumn("url")
	if i != 2 || len(tbl.Rows[0]) != 3 {
		t.Fatalf("EnsureColumn() = %d, row = %q", i, tbl.Rows[0])
	}
	if again := tbl.EnsureColumn("url"); again != i {
		t.Errorf("EnsureColumn() twice = %d, want %d", again, i)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	tbl := NewTable([]string{"id", "message"})
	tbl.Rows = [][]string{{"1", "line one\nline two"}, {"2", "comma, inside"}}
	if err := tbl.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if back.Rows[0][1] != "line one\nline two" || back.Rows[1][1] != "comma, inside" {
		t.Errorf("round trip = %q", back.Rows)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestClean(t *testing.T) {
	long := strings.Repeat("x", 100)
	tbl := NewTable([]string{"id", "text"})
	tbl.Rows = [][]string{
		{"1", long + ",\r\nend"},
		{"1", long},
		{"2", "too short"},
		{"3", strings.Repeat("ã", 100)},
	}

	out, rep, err := Clean(tbl, 100)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	want := Report{Read: 4, Duplicates: 1, TooShort: 1, Kept: 2}
	if rep != want {
		t.Errorf("Clean() report = %+v, want %+v", rep, want)
	}
	if got := out.Rows[0][1]; got != long+"   end" {
		t.Errorf("text not sanitized: %q", got)
	}
	if out.Rows[1][0] != "3" {
		t.Errorf("multi-byte text counted in bytes, row 3 dropped")
	}
}

func TestCleanMissingColumn(t *testing.T) {
	_, _, err := Clean(NewTable([]string{"id", "body"}), 10)
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Clean() error = %v, want ErrMissingColumn", err)
	}
}

func TestFormatFacebook(t *testing.T) {
	tbl := readString(t, "id,text,post_owner.name,post_owner.username,statistics.like_count\n"+
		"10,Post text,Prefeitura,prefeitura_x,5\n"+
		"11,Other text,Anon,,0\n")
	spec := network.Facebook.Spec()

	out, err := Format(tbl, spec)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if len(out.Header) != len(spec.Columns) {
		t.Fatalf("header has %d columns, want %d", len(out.Header), len(spec.Columns))
	}
	get := func(row int, col string) string {
		i, ok := out.Col(col)
		if !ok {
			t.Fatalf("column %q missing", col)
		}
		return out.Rows[row][i]
	}
	if get(0, "message") != "Post text" || get(0, "nickName") != "prefeitura_x" || get(0, "countLike") != "5" {
		t.Errorf("row 0 mapped wrong: %q", out.Rows[0])
	}
	if got := get(0, "profileUrl"); got != "https://www.facebook.com/prefeitura_x" {
		t.Errorf("profileUrl = %q", got)
	}
	if got := get(1, "profileUrl"); got != "" {
		t.Errorf("profileUrl without username = %q, want empty", got)
	}
	if got := get(0, "postUrl"); got != "" {
		t.Errorf("postUrl = %q, want empty", got)
	}
}

func TestFormatInstagramDefaults(t *testing.T) {
	tbl := readString(t, "id,text\n1,hello\n")
	out, err := Format(tbl, network.Instagram.Spec())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	i, _ := out.Col("isSponsored")
	if out.Rows[0][i] != "False" {
		t.Errorf("isSponsored = %q, want False", out.Rows[0][i])
	}
}

func TestFormatRequiresText(t *testing.T) {
	_, err := Format(readString(t, "id,body\n1,x\n"), network.Instagram.Spec())
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("Format() error = %v, want ErrMissingColumn", err)
	}
}

func TestSplit(t *testing.T) {
	tbl := NewTable([]string{"id"})
	for i := 0; i < 7; i++ {
		tbl.Rows = append(tbl.Rows, []string{string(rune('a' + i))})
	}
	parts := Split(tbl, 3)
	if len(parts) != 3 {
		t.Fatalf("Split() = %d parts, want 3", len(parts))
	}
	if parts[0].Len() != 3 || parts[2].Len() != 1 || parts[2].Rows[0][0] != "g" {
		t.Errorf("unexpected parts: %v %v %v", parts[0].Rows, parts[1].Rows, parts[2].Rows)
	}
	if len(Split(NewTable([]string{"id"}), 3)) != 0 {
		t.Error("Split() of empty table produced parts")
	}
}

func TestSplitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posts.csv")
	var sb strings.Builder
	sb.WriteString("id,text\n")
	for i := 0; i < 5; i++ {
		sb.WriteString("1,x\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := SplitFile(path, 2)
	if err != nil {
		t.Fatalf("SplitFile() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "posts_part1.csv"),
		filepath.Join(dir, "posts_part2.csv"),
		filepath.Join(dir, "posts_part3.csv"),
	}
	if strings.Join(files, "|") != strings.Join(want, "|") {
		t.Errorf("SplitFile() = %v, want %v", files, want)
	}
	last, err := ReadFile(want[2])
	if err != nil {
		t.Fatal(err)
	}
	if last.Len() != 1 || last.Header[1] != "text" {
		t.Errorf("last part = %v %v", last.Header, last.Rows)
	}
}
