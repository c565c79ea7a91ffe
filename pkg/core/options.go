package core

import "time"

// SaveOptions controls a single SaveMemory call.
type SaveOptions struct {
	Category   string
	Importance string
	Role       string
	Timestamp  time.Time
}

// SaveOption configures SaveOptions.
type SaveOption func(*SaveOptions)

// WithCategory sets the memory category label.
func WithCategory(category string) SaveOption {
	return func(o *SaveOptions) { o.Category = category }
}

// WithImportance sets the importance level (normal, high, action,
// decision, long-term).
func WithImportance(importance string) SaveOption {
	return func(o *SaveOptions) { o.Importance = importance }
}

// WithRole sets the speaker role recorded with the entry.
func WithRole(role string) SaveOption {
	return func(o *SaveOptions) { o.Role = role }
}

// WithTimestamp files the entry under a specific instant instead of
// the current time. The entry lands in the daily file for this
// timestamp's calendar date.
func WithTimestamp(t time.Time) SaveOption {
	return func(o *SaveOptions) { o.Timestamp = t }
}

// QueryOptions controls a single Query call.
type QueryOptions struct {
	Limit int
}

// QueryOption configures QueryOptions.
type QueryOption func(*QueryOptions)

// WithLimit caps the number of semantic hits returned.
func WithLimit(n int) QueryOption {
	return func(o *QueryOptions) { o.Limit = n }
}

// ValidateOptions controls a single Validate call.
type ValidateOptions struct {
	Collection string
	Keywords   []string
}

// ValidateOption configures ValidateOptions.
type ValidateOption func(*ValidateOptions)

// WithCollection routes the validated entity to a specific collection
// instead of the configured default.
func WithCollection(name string) ValidateOption {
	return func(o *ValidateOptions) { o.Collection = name }
}

// WithKeywords attaches routing keywords to the validated entity.
func WithKeywords(keywords ...string) ValidateOption {
	return func(o *ValidateOptions) { o.Keywords = keywords }
}
