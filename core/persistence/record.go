package persistence

// Record is a map-backed entity for classes declared only in configuration.
type Record struct {
	Class  string
	ID     int64
	Fields map[string]any
}

// NewRecord returns an empty record of the given class.
func NewRecord(class string) *Record {
	return &Record{Class: class, Fields: map[string]any{}}
}

func (r *Record) EntityID() int64      { return r.ID }
func (r *Record) SetEntityID(id int64) { r.ID = id }
func (r *Record) EntityClass() string  { return r.Class }

// Get returns the named field.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Set assigns a field value.
func (r *Record) Set(field string, v any) *Record {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[field] = v
	return r
}
