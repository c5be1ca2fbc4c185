package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFormatOf(t *testing.T) {
	cases := []struct {
		name, hint string
		want       Format
		err        bool
	}{
		{"applicants.CSV", "", FormatCSV, false},
		{"a.json", "", FormatJSON, false},
		{"notes.txt", "", FormatTXT, false},
		{"upload", "json", FormatJSON, false},
		{"scan.pdf", "", "", true},
		{"noext", "", "", true},
	}
	for _, tc := range cases {
		got, err := FormatOf(tc.name, tc.hint)
		if tc.err {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Fatalf("%s: expected unsupported, got %v", tc.name, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s: got %q, %v", tc.name, got, err)
		}
	}
}

func TestApplicantsCSV(t *testing.T) {
	in := "loan_amount,credit_score,employment_status\n25000,720,employed\n 1000.50 ,, \n"
	rows, err := Applicants(FormatCSV, []byte(in), 10)
	if err != nil {
		t.Fatalf("Applicants: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: %d", len(rows))
	}
	if rows[0]["loan_amount"] != int64(25000) || rows[0]["employment_status"] != "employed" {
		t.Fatalf("row 0: %#v", rows[0])
	}
	if rows[1]["loan_amount"] != 1000.5 {
		t.Fatalf("row 1: %#v", rows[1])
	}
	if _, ok := rows[1]["credit_score"]; ok {
		t.Fatalf("blank cell should be dropped: %#v", rows[1])
	}
}

func TestApplicantsMaxRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("age\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "%d\n", 20+i)
	}
	if _, err := Applicants(FormatCSV, []byte(b.String()), 5); !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("expected ErrTooManyRows, got %v", err)
	}
	if _, err := Applicants(FormatJSON, []byte(`[{"a":1},{"a":2},{"a":3}]`), 2); !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("json: expected ErrTooManyRows, got %v", err)
	}
}

func TestApplicantsJSON(t *testing.T) {
	rows, err := Applicants(FormatJSON, []byte(`{"age": 40}`), 0)
	if err != nil || len(rows) != 1 || rows[0]["age"] != 40.0 {
		t.Fatalf("object: %v %v", rows, err)
	}
	if _, err := Applicants(FormatJSON, []byte(`[1,2]`), 0); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := Applicants(FormatJSON, []byte(`[]`), 0); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestApplicantsTXT(t *testing.T) {
	in := "Experience: 4\nEducation: Bachelor's\nnot a field\n\nExperience: 1.5\nSkills Match: 85\n"
	rows, err := Applicants(FormatTXT, []byte(in), 0)
	if err != nil {
		t.Fatalf("Applicants: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: %#v", rows)
	}
	if rows[0]["experience"] != int64(4) || rows[0]["education"] != "Bachelor's" {
		t.Fatalf("row 0: %#v", rows[0])
	}
	if rows[1]["skills_match"] != int64(85) || rows[1]["experience"] != 1.5 {
		t.Fatalf("row 1: %#v", rows[1])
	}

	raw, err := Applicants(FormatTXT, []byte("just some prose"), 0)
	if err != nil || raw[0]["raw_content"] != "just some prose" {
		t.Fatalf("raw: %v %v", raw, err)
	}
}

func TestScalar(t *testing.T) {
	cases := map[string]any{
		"42":      int64(42),
		"-7":      int64(-7),
		"3.25":    3.25,
		"1.2.3":   "1.2.3",
		"RM1,000": "RM1,000",
		" yes ":   "yes",
		".5":      ".5",
	}
	for in, want := range cases {
		if got := Scalar(in); got != want {
			t.Fatalf("Scalar(%q) = %#v, want %#v", in, got, want)
		}
	}
}

func TestPolicies(t *testing.T) {
	got, err := Policies(FormatCSV, []byte("id,policy\n1,Min income RM3000\n2,\"Credit score, at least 600\"\n"))
	if err != nil || len(got) != 2 || got[1] != "Credit score, at least 600" {
		t.Fatalf("csv: %v %v", got, err)
	}
	if _, err := Policies(FormatCSV, []byte("id,text\n1,x\n")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("csv without policy column: %v", err)
	}
	got, err = Policies(FormatJSON, []byte(`["a", {"text": "b"}]`))
	if err != nil || len(got) != 2 || got[1] != "b" {
		t.Fatalf("json: %v %v", got, err)
	}
	if _, err := Policies(FormatJSON, []byte(`{"text":"a"}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("json object: %v", err)
	}
	got, err = Policies(FormatTXT, []byte("one\n\n  two  \n"))
	if err != nil || len(got) != 2 || got[1] != "two" {
		t.Fatalf("txt: %v %v", got, err)
	}
	if _, err := Policies(FormatTXT, []byte("\n\n")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: %v", err)
	}
}
