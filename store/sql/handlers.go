package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// recordIDSpace seeds deterministic ids for rows keyed by a natural name.
var recordIDSpace = uuid.MustParse("8c1f8f8e-4d7a-5b61-9e36-2f6a1c0d9b47")

func optionHandlers() repository.ModelHandlers[*optionRecord] {
	return repository.ModelHandlers[*optionRecord]{
		NewRecord: func() *optionRecord {
			return &optionRecord{}
		},
		GetID: func(record *optionRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *optionRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "namespace"
		},
		GetIdentifierValue: func(record *optionRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.Namespace)
		},
	}
}

func logEntryHandlers() repository.ModelHandlers[*logEntryRecord] {
	return repository.ModelHandlers[*logEntryRecord]{
		NewRecord: func() *logEntryRecord {
			return &logEntryRecord{}
		},
		GetID: func(record *logEntryRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *logEntryRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *logEntryRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func namedRecordID(kind string, name string) string {
	return uuid.NewSHA1(recordIDSpace, []byte(kind+":"+strings.TrimSpace(name))).String()
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
