package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of indexing one image in a bulk request.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the image ID, generated or supplied.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// OK reports whether the item was stored.
func (r Result) OK() bool { return r.status == StatusOK }

// Tally counts stored and failed items.
func Tally(results []Result) (succeeded, failed int) {
	for _, r := range results {
		if r.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// FirstError returns the error of the first failed item, or nil when all succeeded.
func FirstError(results []Result) error {
	for _, r := range results {
		if !r.OK() {
			return r.err
		}
	}
	return nil
}
