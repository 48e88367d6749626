package query

import "strings"

const (
	TypeListObjects    = "connector.query.objects.list"
	TypeDescribeObject = "connector.query.objects.describe"
	TypeGetField       = "connector.query.objects.field"
	TypeListLogs       = "connector.query.logs.list"
	TypeAuthStatus     = "connector.query.auth.status"
)

type ListObjectsMessage struct{}

func (ListObjectsMessage) Type() string { return TypeListObjects }

func (ListObjectsMessage) Validate() error { return nil }

type DescribeObjectMessage struct {
	Object string
}

func (DescribeObjectMessage) Type() string { return TypeDescribeObject }

func (m DescribeObjectMessage) Validate() error {
	if strings.TrimSpace(m.Object) == "" {
		return queryValidationError("object", "object name is required")
	}
	return nil
}

type GetFieldMessage struct {
	Object string
	Field  string
}

func (GetFieldMessage) Type() string { return TypeGetField }

func (m GetFieldMessage) Validate() error {
	if strings.TrimSpace(m.Object) == "" {
		return queryValidationError("object", "object name is required")
	}
	if strings.TrimSpace(m.Field) == "" {
		return queryValidationError("field", "field name is required")
	}
	return nil
}

type ListLogsMessage struct {
	Page    int
	PerPage int
}

func (ListLogsMessage) Type() string { return TypeListLogs }

func (m ListLogsMessage) Validate() error {
	if m.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}

type AuthStatusMessage struct{}

func (AuthStatusMessage) Type() string { return TypeAuthStatus }

func (AuthStatusMessage) Validate() error { return nil }
