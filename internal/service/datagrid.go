package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/datagrid/internal/datagrid"
	"github.com/atlekbai/datagrid/internal/filter"
	"github.com/atlekbai/datagrid/internal/schema"
)

// rootAlias is the alias of the listed object in every generated query.
const rootAlias = "o"

// pgQueryCanceled is raised when statement_timeout cancels a query.
const pgQueryCanceled = "57014"

var (
	errUnknownObject  = errors.New("unknown object")
	errInvalidRequest = errors.New("invalid request")
)

// Defaults are the server-side limits applied to every list request.
type Defaults struct {
	PerPage          int
	MaxPerPage       int
	StatementTimeout time.Duration
}

type DatagridService struct {
	db        datagrid.DB
	cache     *schema.Cache
	functions filter.ComparatorResolver
	defaults  Defaults
	logger    zerolog.Logger
}

func NewDatagridService(db datagrid.DB, cache *schema.Cache, functions filter.ComparatorResolver, defaults Defaults, logger zerolog.Logger) *DatagridService {
	return &DatagridService{
		db:        db,
		cache:     cache,
		functions: functions,
		defaults:  defaults,
		logger:    logger.With().Str("service", DatagridServiceName).Logger(),
	}
}

func (s *DatagridService) RegisterHandler(interceptors ...connect.Interceptor) (string, http.Handler) {
	list := connect.NewUnaryHandler(
		DatagridServiceListProcedure,
		s.List,
		connect.WithSchema(datagridServiceDescriptor.Methods().ByName("List")),
		connect.WithInterceptors(interceptors...),
	)
	return "/" + DatagridServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DatagridServiceListProcedure:
			list.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// listRequest is the JSON shape of a List request.
type listRequest struct {
	Object    string        `json:"object"`
	SortBy    string        `json:"sort_by"`
	SortPath  []string      `json:"sort_path"`
	SortOrder string        `json:"sort_order"`
	Page      int           `json:"page"`
	PerPage   int           `json:"per_page"`
	Filters   []filterInput `json:"filters"`
}

type filterInput struct {
	Name          string   `json:"name"`
	Field         string   `json:"field"`
	Path          []string `json:"path"`
	Type          any      `json:"type"`
	Value         any      `json:"value"`
	CaseSensitive *bool    `json:"case_sensitive"`
	AllowEmpty    bool     `json:"allow_empty"`
}

// operator accepts an operator name, its number, or nothing for the default.
func (f filterInput) operator() (int, error) {
	switch t := f.Type.(type) {
	case nil:
		return 0, nil
	case json.Number:
		n, err := strconv.Atoi(t.String())
		if err != nil {
			return 0, fmt.Errorf("%w: filter %q: type %q is not an integer", errInvalidRequest, f.Name, t)
		}
		return n, nil
	case string:
		if t == "" {
			return 0, nil
		}
		op, err := filter.ParseStringOperator(t)
		if err != nil {
			return 0, fmt.Errorf("filter %q: %w", f.Name, err)
		}
		return int(op), nil
	}
	return 0, fmt.Errorf("%w: filter %q: type must be a string or a number", errInvalidRequest, f.Name)
}

func decodeListRequest(msg *structpb.Struct) (listRequest, error) {
	var in listRequest
	data, err := protojson.Marshal(msg)
	if err != nil {
		return in, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if in.Object == "" {
		return in, fmt.Errorf("%w: object is required", errInvalidRequest)
	}
	return in, nil
}

func (s *DatagridService) List(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	in, err := decodeListRequest(req.Msg)
	if err != nil {
		return nil, s.connectError(err)
	}

	pq, pager, err := s.buildProxy(in)
	if err != nil {
		return nil, s.connectError(err)
	}

	listQuery, err := pq.Finalize()
	if err != nil {
		return nil, s.connectError(err)
	}
	countQuery, err := pq.FinalizeCount()
	if err != nil {
		return nil, s.connectError(err)
	}

	s.logger.Debug().
		Str("object", in.Object).
		Int("filters", len(in.Filters)).
		Str("sql", listQuery.SQL).
		Msg("list query")

	g, gctx := errgroup.WithContext(ctx)

	var totalCount int64
	g.Go(func() error {
		var err error
		totalCount, err = datagrid.Count(gctx, s.db, countQuery)
		return err
	})

	var rows []json.RawMessage
	g.Go(func() error {
		var err error
		rows, err = datagrid.Execute(gctx, s.db, listQuery)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, s.connectError(fmt.Errorf("query failed: %w", err))
	}

	results := make([]any, len(rows))
	for i, raw := range rows {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, s.connectError(fmt.Errorf("decode row: %w", err))
		}
		results[i] = m
	}

	out, err := structpb.NewStruct(map[string]any{
		"results":     results,
		"total_count": totalCount,
		"page":        pager.Page,
		"last_page":   pager.LastPage(totalCount),
	})
	if err != nil {
		return nil, s.connectError(fmt.Errorf("marshal result: %w", err))
	}
	return connect.NewResponse(out), nil
}

// buildProxy turns a request into a filtered, sorted and paged proxy query.
// Filters are applied in request order.
func (s *DatagridService) buildProxy(in listRequest) (*datagrid.ProxyQuery, datagrid.Pager, error) {
	obj := s.cache.Get(in.Object)
	if obj == nil {
		return nil, datagrid.Pager{}, fmt.Errorf("%w: no object registered with api_name %q", errUnknownObject, in.Object)
	}

	pager, err := s.pager(in)
	if err != nil {
		return nil, pager, err
	}

	pq := datagrid.NewProxyQuery(datagrid.NewBuilder(s.cache, obj.APIName, rootAlias), s.cache)
	if s.defaults.StatementTimeout > 0 {
		pq.SetHint(datagrid.HintStatementTimeout, s.defaults.StatementTimeout)
	}

	for i, f := range in.Filters {
		if f.Name == "" {
			return nil, pager, fmt.Errorf("%w: filters[%d]: name is required", errInvalidRequest, i)
		}
		op, err := f.operator()
		if err != nil {
			return nil, pager, err
		}
		field := f.Field
		if field == "" {
			field = f.Name
		}
		if err := s.checkStringField(obj.APIName, f.Path, field); err != nil {
			return nil, pager, fmt.Errorf("filter %q: %w", f.Name, err)
		}

		sf := filter.NewStringFilter(f.Name, filter.Options{
			FieldName:          field,
			ParentAssociations: f.Path,
			CaseSensitive:      f.CaseSensitive,
			AllowEmpty:         f.AllowEmpty,
		}, s.functions)
		if err := pq.ApplyFilter(sf, datagrid.FilterData{Type: op, Value: f.Value}); err != nil {
			return nil, pager, err
		}
	}

	if in.SortBy != "" {
		order := in.SortOrder
		if order == "" {
			order = datagrid.OrderAsc
		}
		if err := pq.SetSort(in.SortPath, in.SortBy, order); err != nil {
			return nil, pager, err
		}
	}

	if err := pager.Apply(pq); err != nil {
		return nil, pager, err
	}
	return pq, pager, nil
}

func (s *DatagridService) pager(in listRequest) (datagrid.Pager, error) {
	if in.Page < 0 || in.PerPage < 0 {
		return datagrid.Pager{}, fmt.Errorf("%w: page and per_page must not be negative", errInvalidRequest)
	}
	p := datagrid.Pager{Page: max(in.Page, 1), PerPage: in.PerPage}
	if p.PerPage == 0 {
		p.PerPage = s.defaults.PerPage
	}
	p.PerPage = min(p.PerPage, s.defaults.MaxPerPage)
	return p, nil
}

// checkStringField verifies that field is a text field of the object reached
// through path. Unresolvable paths are reported by the proxy itself.
func (s *DatagridService) checkStringField(entity string, path []string, field string) error {
	for _, step := range path {
		target, ok := s.cache.AssociationTarget(entity, step)
		if !ok {
			return nil
		}
		entity = target
	}
	ft, ok := s.cache.FieldType(entity, field)
	if !ok {
		return fmt.Errorf("%w: %q has no field %q", errInvalidRequest, entity, field)
	}
	if !ft.IsString() {
		return fmt.Errorf("%w: %q.%q is %s, not a text field", errInvalidRequest, entity, field, ft)
	}
	return nil
}

func (s *DatagridService) connectError(err error) *connect.Error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, errUnknownObject):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, datagrid.ErrInvalidArgument),
		errors.Is(err, datagrid.ErrInvalidOrder),
		errors.Is(err, datagrid.ErrUnresolvedAssociation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled:
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	s.logger.Error().Err(err).Msg("list failed")
	return connect.NewError(connect.CodeInternal, err)
}
