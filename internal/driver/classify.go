package driver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
)

// transientNumbers are the server error numbers retried as transient. They
// cover Azure SQL throttling and service reconfiguration plus resource
// pressure conditions; anything outside this set surfaces immediately.
var transientNumbers = map[int32]bool{
	4060:  true, // cannot open database (service reconfiguration)
	10928: true, // resource limit reached
	10929: true, // server busy
	40197: true, // service error processing request
	40501: true, // service busy
	40613: true, // database unavailable
	49918: true, // not enough resources to process request
	49919: true, // too many create/update operations in progress
	49920: true, // too many operations in progress
	1205:  true, // deadlock victim
}

const (
	numberUnknownColumn   = 207  // invalid column name
	numberDuplicateColumn = 2705 // column names in each table must be unique
	numberLoginFailed     = 18456
)

// IsTransient reports whether err is one of the enumerated connection,
// timeout, or throttling conditions worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var serverErr mssql.Error
	if errors.As(err, &serverErr) {
		return transientNumbers[serverErr.Number]
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Driver-level connection failures arrive as plain errors.
	msg := err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}

// IsUnknownColumn reports whether err is the server's invalid-column-name
// error, the trigger for dynamic schema evolution.
func IsUnknownColumn(err error) bool {
	var serverErr mssql.Error
	return errors.As(err, &serverErr) && serverErr.Number == numberUnknownColumn
}

// IsDuplicateColumn reports whether err is the duplicate-column error raised
// when a racing writer already added the column this evolution attempted.
func IsDuplicateColumn(err error) bool {
	var serverErr mssql.Error
	return errors.As(err, &serverErr) && serverErr.Number == numberDuplicateColumn
}

// IsLoginFailure reports whether err is an authentication failure, which is
// an application error and never retried.
func IsLoginFailure(err error) bool {
	var serverErr mssql.Error
	return errors.As(err, &serverErr) && serverErr.Number == numberLoginFailed
}
