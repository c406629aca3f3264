package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testRecord() *Record {
	return &Record{
		Name:     "Ada Lovelace",
		Title:    "Analyst",
		Location: "London",
		Experience: []Experience{
			{Role: "Dev", Company: "Acme", From: "01/2020", Bullets: []string{"shipped things"}},
		},
		Education: []Education{
			{Degree: "BSc", School: "Uni", Year: "2019"},
		},
		Skills: Skills{
			Core:      []string{"A", "B"},
			Technical: []string{"C"},
		},
	}
}

func TestStore_Accessors(t *testing.T) {
	s := NewStore(testRecord())

	if got := s.CoreSkills(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("CoreSkills() = %v, want [A B]", got)
	}
	if got := s.TechnicalSkills(); len(got) != 1 || got[0] != "C" {
		t.Errorf("TechnicalSkills() = %v, want [C]", got)
	}
	if got := s.Experience(); len(got) != 1 || got[0].Company != "Acme" {
		t.Errorf("Experience() = %+v", got)
	}
	if got := s.Education(); len(got) != 1 || got[0].School != "Uni" {
		t.Errorf("Education() = %+v", got)
	}
}

func TestStore_NilIsEmpty(t *testing.T) {
	var nilStore *Store
	for name, s := range map[string]*Store{
		"nil store":  nilStore,
		"nil record": NewStore(nil),
	} {
		t.Run(name, func(t *testing.T) {
			if len(s.CoreSkills()) != 0 || len(s.TechnicalSkills()) != 0 {
				t.Error("expected empty skills")
			}
			if len(s.Experience()) != 0 {
				t.Error("expected empty experience")
			}
			if len(s.Education()) != 0 {
				t.Error("expected empty education")
			}
			if s.Name() != "" {
				t.Errorf("Name() = %q, want empty", s.Name())
			}
			if got := s.Summary(); got != "Profile: not yet configured." {
				t.Errorf("Summary() = %q", got)
			}
		})
	}
}

func TestStore_DoesNotAliasCaller(t *testing.T) {
	rec := testRecord()
	s := NewStore(rec)

	rec.Skills.Core[0] = "mutated"
	rec.Experience[0].Bullets[0] = "mutated"

	if s.CoreSkills()[0] != "A" {
		t.Error("store observed caller mutation of skills")
	}

	exp := s.Experience()
	exp[0].Bullets[0] = "mutated again"
	if s.Experience()[0].Bullets[0] != "shipped things" {
		t.Error("accessor result aliases stored bullets")
	}

	r := s.Record()
	r.Education[0].School = "elsewhere"
	if s.Education()[0].School != "Uni" {
		t.Error("Record() result aliases stored education")
	}
}

func TestStore_Summary(t *testing.T) {
	s := NewStore(testRecord())
	got := s.Summary()

	for _, want := range []string{"Ada Lovelace, Analyst.", "Based in London.", "Dev at Acme since 01/2020", "Skills: A, B, C."} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, want it to contain %q", got, want)
		}
	}
}

func TestSummary_Truncated(t *testing.T) {
	rec := testRecord()
	for i := 0; i < 300; i++ {
		rec.Skills.Technical = append(rec.Skills.Technical, "skill")
	}
	got := NewStore(rec).Summary()
	if len(got) > maxSummaryChars {
		t.Errorf("summary length = %d, want <= %d", len(got), maxSummaryChars)
	}
}

func TestLoad_Default(t *testing.T) {
	rec, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if rec.Name != "Mohammed Zakir Nooraj" {
		t.Errorf("Name = %q", rec.Name)
	}
	if len(rec.Skills.Core) != 5 || len(rec.Skills.Technical) != 6 {
		t.Errorf("skills = %+v", rec.Skills)
	}
	if len(rec.Experience) != 1 || rec.Experience[0].From != "05/2024" {
		t.Errorf("experience = %+v", rec.Experience)
	}
	if len(rec.Experience[0].Bullets) != 5 {
		t.Errorf("bullets = %d, want 5", len(rec.Experience[0].Bullets))
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := `name: Grace
skills:
  core: [COBOL]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rec.Name != "Grace" {
		t.Errorf("Name = %q, want Grace", rec.Name)
	}
	if len(rec.Education) != 0 {
		t.Errorf("expected no education, got %v", rec.Education)
	}
	if got := NewStore(rec).TechnicalSkills(); len(got) != 0 {
		t.Errorf("TechnicalSkills() = %v, want empty", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse([]byte("title: no name\n")); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := Parse([]byte("name: x\nskils: []\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}
