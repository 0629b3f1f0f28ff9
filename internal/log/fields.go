package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldErrorKind   = "error_kind"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldSeriesID    = "series_id"
	FieldAnchorID    = "anchor_id"
	FieldInstanceID  = "instance_id"
	FieldScope       = "scope"
	FieldCount       = "count"
	FieldPeriod      = "period"
	FieldAmountCents = "amount_cents"
	FieldEventType   = "event_type"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpTransfer   = "transfer"
	OpRead       = "read"
	OpEdit       = "edit"
	OpDelete     = "delete"
	OpAnticipate = "anticipate"
	OpSettle     = "settle"
	OpResolve    = "resolve"
	OpMirror     = "mirror"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds the error text; nil errors add nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSeries adds the owner and series of a ledger operation. Empty values
// are skipped.
func (f LogFields) WithSeries(userID, seriesID string) LogFields {
	if userID != "" {
		f[FieldUserID] = userID
	}
	if seriesID != "" {
		f[FieldSeriesID] = seriesID
	}
	return f
}

// WithScope adds the anchor and scope of a scoped mutation.
func (f LogFields) WithScope(anchorID, scope string) LogFields {
	f[FieldAnchorID] = anchorID
	f[FieldScope] = scope
	return f
}

func (f LogFields) WithCount(n int) LogFields {
	f[FieldCount] = n
	return f
}

func (f LogFields) WithHTTP(method, path string, status int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a key/value slice for slog, sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
