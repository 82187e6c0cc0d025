package db

import (
	"reflect"
	"strings"
	"testing"
)

// The migrated schema must carry real foreign keys: a source always
// references a registered user, and association rows always reference real
// source and keyword rows. These assertions pin the gorm tags AutoMigrate
// derives the REFERENCES clauses from.
func TestModelForeignKeyConstraints(t *testing.T) {
	t.Parallel()

	cases := []struct {
		model      any
		field      string
		foreignKey string
		onDelete   string
	}{
		{model: Source{}, field: "Author", foreignKey: "foreignKey:AuthorID", onDelete: "OnDelete:RESTRICT"},
		{model: SourceKeyword{}, field: "Source", foreignKey: "foreignKey:SourceID", onDelete: "OnDelete:CASCADE"},
		{model: SourceKeyword{}, field: "Keyword", foreignKey: "foreignKey:KeywordID", onDelete: "OnDelete:RESTRICT"},
	}
	for _, tc := range cases {
		modelType := reflect.TypeOf(tc.model)
		field, ok := modelType.FieldByName(tc.field)
		if !ok {
			t.Errorf("%s has no %s association field", modelType.Name(), tc.field)
			continue
		}
		tag := field.Tag.Get("gorm")
		if !strings.Contains(tag, tc.foreignKey) {
			t.Errorf("%s.%s gorm tag %q is missing %q", modelType.Name(), tc.field, tag, tc.foreignKey)
		}
		if !strings.Contains(tag, "constraint:") || !strings.Contains(tag, tc.onDelete) {
			t.Errorf("%s.%s gorm tag %q is missing constraint %q", modelType.Name(), tc.field, tag, tc.onDelete)
		}
	}
}

func TestAutoMigrateCoversEveryModel(t *testing.T) {
	t.Parallel()

	want := map[string]bool{
		"User":          false,
		"Source":        false,
		"Keyword":       false,
		"SourceKeyword": false,
	}
	for _, model := range autoMigrateModels() {
		name := reflect.TypeOf(model).Elem().Name()
		if _, expected := want[name]; !expected {
			t.Errorf("unexpected migrated model %s", name)
			continue
		}
		want[name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("model %s is not migrated", name)
		}
	}
}
