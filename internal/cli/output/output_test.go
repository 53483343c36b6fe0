package output

import (
	"bytes"
	"strings"
	"testing"
)

type row struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

type rows []row

func (r rows) Table() *Table {
	t := NewTable("TYPE", "VALUE")
	for _, x := range r {
		t.AddRow(x.Type, x.Value)
	}
	return t
}

var sample = rows{{"name", "ada"}, {"role", ""}}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, " yaml ": FormatYAML, "table": FormatTable} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatTable).Format(&buf, sample); err != nil {
		t.Fatal(err)
	}
	want := "TYPE  VALUE\nname  ada\nrole  -\n"
	if buf.String() != want {
		t.Errorf("table output = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	f := &TableFormatter{NoHeaders: true}
	_ = f.Format(&buf, sample.Table())
	if strings.Contains(buf.String(), "TYPE") {
		t.Error("NoHeaders should drop the header row")
	}
}

func TestTableFormatter_FallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatTable).Format(&buf, map[string]int{"deleted": 3}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"deleted": 3`) {
		t.Errorf("fallback output = %q", buf.String())
	}
}

func TestJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	_ = NewFormatter(FormatJSON).Format(&buf, sample)
	if !strings.Contains(buf.String(), `"value": "ada"`) {
		t.Errorf("json = %q", buf.String())
	}

	buf.Reset()
	if err := NewFormatter(FormatYAML).Format(&buf, sample); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "- type: name\n  value: ada\n") {
		t.Errorf("yaml = %q", buf.String())
	}
}

func TestJSON_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON.Format(&buf, map[string]string{"url": "https://a.example/?x=1&y=<2>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "x=1&y=<2>") {
		t.Errorf("json = %q", buf.String())
	}
}
