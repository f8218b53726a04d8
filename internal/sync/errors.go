package sync

import (
	"fmt"
	"strings"
)

// SchemaError is returned when a table is created from an abstract spec
// or when a DDL statement fails for any reason other than losing a
// create race to a concurrent caller.
type SchemaError struct {
	Op  string // operation being performed, e.g. "create table"
	Msg string
	Err error // underlying DDL failure, may be nil
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// alreadyExistsPatterns are the error-message fragments servers emit when
// a concurrent caller won the create race. Message sniffing is a compat
// shim for servers without a structured existence error; it lives here
// so it can be swapped per server capability.
var alreadyExistsPatterns = []string{
	"Cannot add already existing column family",
	"Cannot add already existing table",
	"already exists",
}

// alreadyExists reports whether a DDL failure indicates the object was
// created by a concurrent caller
func alreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range alreadyExistsPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
