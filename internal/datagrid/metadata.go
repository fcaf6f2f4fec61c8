package datagrid

import (
	"github.com/google/uuid"

	"github.com/atlekbai/datagrid/internal/schema"
)

// Metadata answers the entity questions the proxy needs while building a query.
// AssociationTarget reports ok=false for fields that are not associations.
type Metadata interface {
	IdentifierFields(entity string) ([]string, error)
	AssociationTarget(entity, field string) (string, bool)
}

// Catalog resolves object definitions when compiling to SQL.
type Catalog interface {
	Get(apiName string) *schema.ObjectDef
	GetByID(id uuid.UUID) *schema.ObjectDef
}

var (
	_ Metadata = (*schema.Cache)(nil)
	_ Catalog  = (*schema.Cache)(nil)
)
