package datagrid

import "errors"

var (
	// ErrInvalidOrder is returned when a sort order is neither ASC nor DESC.
	ErrInvalidOrder = errors.New("invalid sort order")
	// ErrInvalidArgument covers negative page bounds and malformed filter input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnresolvedAssociation is returned when a join step names a field that
	// is not an association of the current entity.
	ErrUnresolvedAssociation = errors.New("unresolved association")
)
