package errors

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorDump is a log-friendly view of an error chain. Driver fields are set
// when a document store backend produced the failure.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	Backend      string `json:"backend,omitempty"`
	BackendCode  string `json:"backend_code,omitempty"`
	BackendError string `json:"backend_error,omitempty"`
	Table        string `json:"table,omitempty"`
	Constraint   string `json:"constraint,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgErr *pgconn.PgError
	var cmdErr mongo.CommandError
	var writeErr mongo.WriteException
	switch {
	case errors.As(err, &pgErr):
		d.Backend = "postgres"
		d.BackendCode = pgErr.Code
		d.BackendError = pgErr.Message
		d.Table = pgErr.TableName
		d.Constraint = pgErr.ConstraintName
	case errors.As(err, &cmdErr):
		d.Backend = "mongo"
		d.BackendCode = strconv.Itoa(int(cmdErr.Code))
		d.BackendError = cmdErr.Message
	case errors.As(err, &writeErr) && len(writeErr.WriteErrors) > 0:
		d.Backend = "mongo"
		d.BackendCode = strconv.Itoa(writeErr.WriteErrors[0].Code)
		d.BackendError = writeErr.WriteErrors[0].Message
	}
	return d
}

// Fields flattens the dump into structured log fields, omitting empty
// backend details.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	for key, value := range map[string]string{
		"store_backend":    d.Backend,
		"store_code":       d.BackendCode,
		"store_error":      d.BackendError,
		"store_table":      d.Table,
		"store_constraint": d.Constraint,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
