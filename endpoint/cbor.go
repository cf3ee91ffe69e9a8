package endpoint

import (
	"net/http"

	"github.com/fxamacker/cbor/v2"
)

// CBORRenderer serializes Value as CBOR (RFC 8949).
//
// Content-Type is set to "application/cbor" unless already present.
type CBORRenderer struct {
	Status int
	Value  any

	// EncMode optionally overrides the encoding options. When nil, the
	// default options of the cbor package are used.
	EncMode cbor.EncMode
}

func (cr *CBORRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	setContentType(w, "application/cbor")

	var (
		b   []byte
		err error
	)
	if cr.EncMode != nil {
		b, err = cr.EncMode.Marshal(cr.Value)
	} else {
		b, err = cbor.Marshal(cr.Value)
	}
	if err != nil {
		// Nothing has been written yet; the handler reports a 500.
		w.Header().Del("Content-Type")
		return err
	}

	w.WriteHeader(statusOrDefault(cr.Status, http.StatusOK))
	_, err = w.Write(b)
	return err
}
