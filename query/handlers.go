package query

import (
	"context"

	"github.com/goliatone/go-salesforce-connector/core"
	"github.com/goliatone/go-salesforce-connector/schema"
)

type CatalogReader interface {
	ObjectOptions(ctx context.Context) ([]schema.Option, error)
	Object(ctx context.Context, name string) (schema.Object, error)
	Field(ctx context.Context, objectName string, fieldName string) (schema.Field, error)
}

type LogReader interface {
	List(ctx context.Context, page int, perPage int) (core.LogPage, error)
}

type StatusReader interface {
	Status(ctx context.Context) (core.AuthStatus, error)
}

type ListObjectsQuery struct {
	reader CatalogReader
}

func NewListObjectsQuery(reader CatalogReader) *ListObjectsQuery {
	return &ListObjectsQuery{reader: reader}
}

func (q *ListObjectsQuery) Query(ctx context.Context, _ ListObjectsMessage) ([]schema.Option, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: catalog reader is required")
	}
	return q.reader.ObjectOptions(ctx)
}

// DescribeObjectQuery returns the object's fields as name/label options.
type DescribeObjectQuery struct {
	reader CatalogReader
}

func NewDescribeObjectQuery(reader CatalogReader) *DescribeObjectQuery {
	return &DescribeObjectQuery{reader: reader}
}

func (q *DescribeObjectQuery) Query(ctx context.Context, msg DescribeObjectMessage) ([]schema.Option, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: catalog reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	object, err := q.reader.Object(ctx, msg.Object)
	if err != nil {
		return nil, err
	}
	return object.FieldOptions(), nil
}

type GetFieldQuery struct {
	reader CatalogReader
}

func NewGetFieldQuery(reader CatalogReader) *GetFieldQuery {
	return &GetFieldQuery{reader: reader}
}

func (q *GetFieldQuery) Query(ctx context.Context, msg GetFieldMessage) (schema.Field, error) {
	if q == nil || q.reader == nil {
		return schema.Field{}, queryDependencyError("query: catalog reader is required")
	}
	if err := msg.Validate(); err != nil {
		return schema.Field{}, err
	}
	return q.reader.Field(ctx, msg.Object, msg.Field)
}

type ListLogsQuery struct {
	reader LogReader
}

func NewListLogsQuery(reader LogReader) *ListLogsQuery {
	return &ListLogsQuery{reader: reader}
}

func (q *ListLogsQuery) Query(ctx context.Context, msg ListLogsMessage) (core.LogPage, error) {
	if q == nil || q.reader == nil {
		return core.LogPage{}, queryDependencyError("query: log reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.LogPage{}, err
	}
	page, perPage := core.NormalizePaging(msg.Page, msg.PerPage)
	return q.reader.List(ctx, page, perPage)
}

type AuthStatusQuery struct {
	reader StatusReader
}

func NewAuthStatusQuery(reader StatusReader) *AuthStatusQuery {
	return &AuthStatusQuery{reader: reader}
}

func (q *AuthStatusQuery) Query(ctx context.Context, _ AuthStatusMessage) (core.AuthStatus, error) {
	if q == nil || q.reader == nil {
		return core.AuthStatus{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx)
}
