package schema

import (
	"slices"
	"testing"

	"github.com/google/uuid"
)

func testObjects() (*ObjectDef, *ObjectDef) {
	teamID := uuid.New()
	employees := &ObjectDef{
		ID: uuid.New(), APIName: "employees", Title: "Employee",
		StorageSchema: new("hr"), StorageTable: new("employees"),
		Fields: []FieldDef{
			{ID: uuid.New(), APIName: "name", Type: FieldText, StorageColumn: new("full_name")},
			{ID: uuid.New(), APIName: "salary", Type: FieldNumber},
			{ID: uuid.New(), APIName: "team", Type: FieldLookup, StorageColumn: new("team_id"), LookupObjectID: new(teamID)},
			{ID: uuid.New(), APIName: "manager", Type: FieldLookup, StorageColumn: new("manager_id")},
		},
	}
	teams := &ObjectDef{
		ID: teamID, APIName: "teams", Title: "Team",
		IdentifierFields: []string{"org", "code"},
		Fields: []FieldDef{
			{ID: uuid.New(), APIName: "code", Type: FieldText},
			{ID: uuid.New(), APIName: "members", Type: FieldCollection, LookupObjectID: new(employees.ID), MappedBy: new("team")},
		},
	}
	return employees, teams
}

func TestObjectDef(t *testing.T) {
	employees, teams := testObjects()
	NewCacheFromObjects(employees, teams)

	if got := employees.TableName(); got != `"hr"."employees"` {
		t.Errorf("TableName = %s", got)
	}
	if got := teams.TableName(); got != `"teams"` {
		t.Errorf("TableName = %s", got)
	}
	if got := employees.Identifiers(); !slices.Equal(got, []string{"id"}) {
		t.Errorf("Identifiers = %v", got)
	}
	if got := teams.Identifiers(); !slices.Equal(got, []string{"org", "code"}) {
		t.Errorf("Identifiers = %v", got)
	}
	for apiName, want := range map[string]string{"name": "full_name", "salary": "salary", "team": "team_id", "id": "id"} {
		if got := employees.Column(apiName); got != want {
			t.Errorf("Column(%q) = %q, want %q", apiName, got, want)
		}
	}
}

func TestCacheMetadata(t *testing.T) {
	employees, teams := testObjects()
	c := NewCacheFromObjects(employees, teams)

	if c.ObjectCount() != 2 {
		t.Fatalf("ObjectCount = %d", c.ObjectCount())
	}
	if c.GetByID(teams.ID) != teams {
		t.Fatal("GetByID did not return teams")
	}

	tests := []struct {
		entity, field string
		target        string
		ok            bool
	}{
		{"employees", "team", "teams", true},
		{"teams", "members", "employees", true},
		{"employees", "name", "", false},
		{"employees", "manager", "", false},
		{"employees", "missing", "", false},
		{"missing", "team", "", false},
	}
	for _, tt := range tests {
		target, ok := c.AssociationTarget(tt.entity, tt.field)
		if target != tt.target || ok != tt.ok {
			t.Errorf("AssociationTarget(%q, %q) = %q, %v", tt.entity, tt.field, target, ok)
		}
	}

	if ft, ok := c.FieldType("employees", "salary"); !ok || ft != FieldNumber || ft.IsString() {
		t.Errorf("FieldType(salary) = %q, %v", ft, ok)
	}
	if ft, ok := c.FieldType("teams", "code"); !ok || !ft.IsString() {
		t.Errorf("FieldType(code) = %q, %v", ft, ok)
	}

	ids, err := c.IdentifierFields("teams")
	if err != nil || !slices.Equal(ids, []string{"org", "code"}) {
		t.Errorf("IdentifierFields = %v, %v", ids, err)
	}
	if _, err := c.IdentifierFields("missing"); err == nil {
		t.Error("expected error for unknown object")
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdent = %s", got)
	}
}
