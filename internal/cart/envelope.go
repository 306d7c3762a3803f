package cart

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Region names a UI component the client should refresh after an
// operation. The vocabulary is fixed; operations always list regions
// explicitly, nothing is inferred.
type Region string

const (
	RegionCart           Region = "cart"
	RegionSummary        Region = "summary"
	RegionShipping       Region = "shipping"
	RegionShippingMethod Region = "shippingmethod"
)

// Envelope is the uniform outcome object every façade operation returns.
// Optional payloads are explicit typed fields, not an open-ended map;
// absence is encoded with omitempty or a nil pointer. Constructed fresh
// per call and never persisted.
type Envelope struct {
	Status      Status        `json:"status"`
	Code        int           `json:"code"`
	Message     string        `json:"message"`
	CartUpdated bool          `json:"cart_updated"`
	Refresh     []Region      `json:"refresh"`
	TotalItems  *int          `json:"total_items,omitempty"`
	ShippingID  *int64        `json:"shipping_id,omitempty"`
	Hash        string        `json:"hash,omitempty"`
	Cart        *View         `json:"cart,omitempty"`
	Results     []BatchResult `json:"results,omitempty"`
}

// BatchResult is the per-entry outcome of a batch add.
type BatchResult struct {
	ID      int64  `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Success builds a success envelope: code 200 unless overridden later,
// refresh set exactly as given.
func Success(message string, regions ...Region) *Envelope {
	if regions == nil {
		regions = []Region{}
	}
	return &Envelope{
		Status:  StatusSuccess,
		Code:    200,
		Message: message,
		Refresh: regions,
	}
}

// Fail normalizes an operation error into an envelope. Typed failures
// carry their kind's default code (or an explicit override); anything
// else is a downstream fault reported as 500.
func Fail(err error) *Envelope {
	e := &Envelope{
		Status:  StatusError,
		Refresh: []Region{},
	}
	if f, ok := AsFailure(err); ok {
		e.Code = f.Code
		e.Message = f.Message
		return e
	}
	e.Code = 500
	e.Message = err.Error()
	return e
}

// Updated marks the server-held cart as changed by this operation.
func (e *Envelope) Updated() *Envelope {
	e.CartUpdated = true
	return e
}

func (e *Envelope) WithTotalItems(n int) *Envelope {
	e.TotalItems = &n
	return e
}

func (e *Envelope) WithShippingID(id int64) *Envelope {
	e.ShippingID = &id
	return e
}

func (e *Envelope) WithHash(hash string) *Envelope {
	e.Hash = hash
	return e
}

func (e *Envelope) WithCart(v *View) *Envelope {
	e.Cart = v
	return e
}

func (e *Envelope) WithResults(results []BatchResult) *Envelope {
	e.Results = results
	return e
}
