package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const loadQuery = `
SELECT
	o.id, o.api_name, o.title,
	o.storage_schema, o.storage_table, o.identifier_fields,
	f.id, f.api_name, f.title, f.type,
	f.storage_column, f.lookup_object_id, f.mapped_by
FROM metadata.objects o
LEFT JOIN metadata.fields f ON f.object_id = o.id
ORDER BY o.api_name, f.created_at
`

// Cache holds object definitions keyed by API name and ID. It is safe for
// concurrent use and can be reloaded while serving.
type Cache struct {
	mu      sync.RWMutex
	objects map[string]*ObjectDef
	byID    map[uuid.UUID]*ObjectDef
}

func NewCache() *Cache {
	return &Cache{
		objects: make(map[string]*ObjectDef),
		byID:    make(map[uuid.UUID]*ObjectDef),
	}
}

// NewCacheFromObjects builds a cache from in-memory definitions.
func NewCacheFromObjects(objs ...*ObjectDef) *Cache {
	c := NewCache()
	for _, obj := range objs {
		if obj.FieldsByAPIName == nil {
			obj.Index()
		}
		c.objects[obj.APIName] = obj
		c.byID[obj.ID] = obj
	}
	return c
}

func (c *Cache) Load(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, loadQuery)
	if err != nil {
		return fmt.Errorf("schema cache load: %w", err)
	}
	defer rows.Close()

	objects := make(map[string]*ObjectDef)

	for rows.Next() {
		var (
			oID             uuid.UUID
			oAPIName        string
			oTitle          string
			oStorageSchema  *string
			oStorageTable   *string
			oIdentifiers    []string
			fID             *uuid.UUID
			fAPIName        *string
			fTitle          *string
			fType           *string
			fStorageColumn  *string
			fLookupObjectID *uuid.UUID
			fMappedBy       *string
		)

		err := rows.Scan(
			&oID, &oAPIName, &oTitle,
			&oStorageSchema, &oStorageTable, &oIdentifiers,
			&fID, &fAPIName, &fTitle, &fType,
			&fStorageColumn, &fLookupObjectID, &fMappedBy,
		)
		if err != nil {
			return fmt.Errorf("schema cache scan: %w", err)
		}

		obj, exists := objects[oAPIName]
		if !exists {
			obj = &ObjectDef{
				ID:               oID,
				APIName:          oAPIName,
				Title:            oTitle,
				StorageSchema:    oStorageSchema,
				StorageTable:     oStorageTable,
				IdentifierFields: oIdentifiers,
			}
			objects[oAPIName] = obj
		}

		if fID != nil {
			obj.Fields = append(obj.Fields, FieldDef{
				ID:             *fID,
				ObjectID:       oID,
				APIName:        *fAPIName,
				Title:          *fTitle,
				Type:           FieldType(*fType),
				StorageColumn:  fStorageColumn,
				LookupObjectID: fLookupObjectID,
				MappedBy:       fMappedBy,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema cache rows: %w", err)
	}

	byID := make(map[uuid.UUID]*ObjectDef, len(objects))
	for _, obj := range objects {
		// Fields is complete now, so pointers into it stay valid.
		obj.Index()
		byID[obj.ID] = obj
	}

	c.mu.Lock()
	c.objects = objects
	c.byID = byID
	c.mu.Unlock()

	return nil
}

func (c *Cache) Get(apiName string) *ObjectDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objects[apiName]
}

// GetByID finds an object definition by its UUID.
func (c *Cache) GetByID(id uuid.UUID) *ObjectDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// ObjectCount returns the number of loaded objects.
func (c *Cache) ObjectCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// IdentifierFields returns the ordered identifier field names of an object.
func (c *Cache) IdentifierFields(entity string) ([]string, error) {
	obj := c.Get(entity)
	if obj == nil {
		return nil, fmt.Errorf("no object registered with api_name %q", entity)
	}
	return obj.Identifiers(), nil
}

// AssociationTarget returns the API name of the object an association points to.
func (c *Cache) AssociationTarget(entity, field string) (string, bool) {
	fd := c.field(entity, field)
	if fd == nil || !fd.IsAssociation() {
		return "", false
	}
	target := c.GetByID(*fd.LookupObjectID)
	if target == nil {
		return "", false
	}
	return target.APIName, true
}

// FieldType returns the declared type of a field.
func (c *Cache) FieldType(entity, field string) (FieldType, bool) {
	fd := c.field(entity, field)
	if fd == nil {
		return "", false
	}
	return fd.Type, true
}

func (c *Cache) field(entity, field string) *FieldDef {
	obj := c.Get(entity)
	if obj == nil {
		return nil
	}
	return obj.FieldsByAPIName[field]
}
