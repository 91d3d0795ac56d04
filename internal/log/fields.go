package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldDuration     = "duration_ms"
	FieldBaseCurrency = "base_currency"
	FieldFromCurrency = "from_currency"
	FieldToCurrency   = "to_currency"
	FieldAmountMinor  = "amount_minor"
	FieldCurrencies   = "currencies"
	FieldLastUpdated  = "last_updated"
	FieldFromCache    = "from_cache"
	FieldStale        = "stale"
	FieldStatusCode   = "status_code"
	FieldURL          = "url"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentRates    = "rates"
	ComponentFX       = "fx"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
	ComponentServices = "services"
)

// Operations defines standard operation names
const (
	OpFetch   = "fetch"
	OpRefresh = "refresh"
	OpConvert = "convert"
	OpWrite   = "write"
	OpPublish = "publish"
	OpConsume = "consume"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAPI           = "api_error"
	ErrorTypeMissingRate   = "missing_rate"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

// WithConversion adds the fields describing one currency conversion
func (f LogFields) WithConversion(amount int64, from, to, base string) LogFields {
	f[FieldAmountMinor] = amount
	f[FieldFromCurrency] = from
	f[FieldToCurrency] = to
	f[FieldBaseCurrency] = base
	return f
}

// WithRates adds rate snapshot metadata
func (f LogFields) WithRates(base string, currencies int, fromCache, stale bool) LogFields {
	f[FieldBaseCurrency] = base
	f[FieldCurrencies] = currencies
	f[FieldFromCache] = fromCache
	f[FieldStale] = stale
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
