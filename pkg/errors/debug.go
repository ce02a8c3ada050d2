package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DBError is the driver-level detail pulled out of a wrapped database error.
type DBError struct {
	Driver     string `json:"driver"`
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ErrorDump flattens an error chain for logging. It never reaches clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	Retryable  bool     `json:"retryable"`
	DB         *DBError `json:"db,omitempty"`
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
	d.Retryable = Retryable(err)
	d.DB = dbError(err)
	return d
}

// Fields renders the dump as logger fields; db_* keys appear only when a
// driver error was found in the chain.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
		"retryable":   d.Retryable,
	}
	if d.DB != nil {
		fields["db_driver"] = d.DB.Driver
		fields["db_code"] = d.DB.Code
		fields["db_message"] = d.DB.Message
		if d.DB.Detail != "" {
			fields["db_detail"] = d.DB.Detail
		}
		if d.DB.Table != "" {
			fields["db_table"] = d.DB.Table
		}
		if d.DB.Constraint != "" {
			fields["db_constraint"] = d.DB.Constraint
		}
	}
	return fields
}

func dbError(err error) *DBError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &DBError{
			Driver:     "pgx",
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DBError{
			Driver:     "pq",
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &DBError{
			Driver:  "sqlite3",
			Code:    liteErr.Code.Error(),
			Detail:  liteErr.ExtendedCode.Error(),
			Message: liteErr.Error(),
		}
	}
	return nil
}
