package schema

import (
	"strings"

	"github.com/google/uuid"
)

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type FieldType string

const (
	FieldText       FieldType = "TEXT"
	FieldNumber     FieldType = "NUMBER"
	FieldDate       FieldType = "DATE"
	FieldDatetime   FieldType = "DATETIME"
	FieldBoolean    FieldType = "BOOLEAN"
	FieldChoice     FieldType = "CHOICE"
	FieldEmail      FieldType = "EMAIL"
	FieldURL        FieldType = "URL"
	FieldLookup     FieldType = "LOOKUP"
	FieldCollection FieldType = "COLLECTION"
)

// IsString returns true for types stored as text.
func (t FieldType) IsString() bool {
	switch t {
	case FieldText, FieldChoice, FieldEmail, FieldURL:
		return true
	}
	return false
}

type FieldDef struct {
	ID       uuid.UUID
	ObjectID uuid.UUID
	APIName  string
	Title    string
	Type     FieldType
	// StorageColumn is the backing column. For lookups it holds the foreign key.
	StorageColumn  *string
	LookupObjectID *uuid.UUID
	// MappedBy names the lookup field on the target object that points back
	// to this one. Only set for collections.
	MappedBy *string
}

// IsAssociation returns true if the field navigates to another object.
func (f *FieldDef) IsAssociation() bool {
	return (f.Type == FieldLookup || f.Type == FieldCollection) && f.LookupObjectID != nil
}

// IsString returns true for field types stored as text.
func (f *FieldDef) IsString() bool { return f.Type.IsString() }

// Column returns the storage column, falling back to the API name.
func (f *FieldDef) Column() string {
	if f.StorageColumn != nil {
		return *f.StorageColumn
	}
	return f.APIName
}

type ObjectDef struct {
	ID               uuid.UUID
	APIName          string
	Title            string
	StorageSchema    *string
	StorageTable     *string
	IdentifierFields []string
	Fields           []FieldDef
	FieldsByAPIName  map[string]*FieldDef
}

// TableName returns the fully qualified, quoted table name.
func (o *ObjectDef) TableName() string {
	if o.StorageSchema != nil && o.StorageTable != nil {
		return QuoteIdent(*o.StorageSchema) + "." + QuoteIdent(*o.StorageTable)
	}
	if o.StorageTable != nil {
		return QuoteIdent(*o.StorageTable)
	}
	return QuoteIdent(o.APIName)
}

// Identifiers returns the identifier field names, defaulting to "id".
func (o *ObjectDef) Identifiers() []string {
	if len(o.IdentifierFields) == 0 {
		return []string{"id"}
	}
	return o.IdentifierFields
}

// Column maps a field API name to its storage column. Unknown names are
// returned unchanged so system columns like "id" resolve to themselves.
func (o *ObjectDef) Column(apiName string) string {
	if fd, ok := o.FieldsByAPIName[apiName]; ok {
		return fd.Column()
	}
	return apiName
}

// Index rebuilds FieldsByAPIName from Fields.
func (o *ObjectDef) Index() {
	o.FieldsByAPIName = make(map[string]*FieldDef, len(o.Fields))
	for i := range o.Fields {
		o.FieldsByAPIName[o.Fields[i].APIName] = &o.Fields[i]
	}
}
