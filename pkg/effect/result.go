package effect

import (
	"fmt"
	"time"
)

// ResultKind tags the variant of a Result's raw value.
type ResultKind string

// Result value variants. Any runtime type outside the tagged set falls back
// to its string representation so the union is always exhaustive.
const (
	ResultMap    ResultKind = "map"
	ResultBool   ResultKind = "bool"
	ResultString ResultKind = "string"
	ResultList   ResultKind = "list"
	ResultText   ResultKind = "text" // Fallback string formatting
)

// Result is the output of one successful effect execution. It is created
// once per execution and never mutated afterward.
type Result struct {
	Kind ResultKind

	MapValue    map[string]any
	BoolValue   bool
	StringValue string
	ListValue   []any
	TextValue   string

	// TransactionState is the final state of the execution's transaction,
	// or empty when the request ran without one.
	TransactionState string
	// ProcessingTime is the handler's end-to-end elapsed time.
	ProcessingTime time.Duration
	// RetryCount is the number of retries performed before success.
	RetryCount int
	// SideEffectsApplied lists the operation descriptors recorded by the
	// transaction, including operations without a compensator.
	SideEffectsApplied []string
	// Metadata carries engine context (node id, operation id).
	Metadata map[string]any
}

// WrapValue classifies a handler's raw return value into the tagged union.
func WrapValue(raw any) Result {
	switch v := raw.(type) {
	case map[string]any:
		return Result{Kind: ResultMap, MapValue: v}
	case bool:
		return Result{Kind: ResultBool, BoolValue: v}
	case string:
		return Result{Kind: ResultString, StringValue: v}
	case []any:
		return Result{Kind: ResultList, ListValue: v}
	default:
		return Result{Kind: ResultText, TextValue: fmt.Sprintf("%v", v)}
	}
}

// Value returns the raw value carried by the active variant.
func (r *Result) Value() any {
	switch r.Kind {
	case ResultMap:
		return r.MapValue
	case ResultBool:
		return r.BoolValue
	case ResultString:
		return r.StringValue
	case ResultList:
		return r.ListValue
	default:
		return r.TextValue
	}
}
