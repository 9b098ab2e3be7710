package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"settlement-form-backend/internal/form"
)

// Drafts are stored as CBOR. Field names come from the json tags of
// FormState, so a draft survives field reordering.
var (
	draftEncMode cbor.EncMode
	draftDecMode cbor.DecMode
)

func init() {
	var err error
	draftEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	draftDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeDraft serializes a form for storage.
func EncodeDraft(s *form.FormState) ([]byte, error) {
	data, err := draftEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	return data, nil
}

// DraftDecoder returns a decoder that fills a form from stored data. Keys
// missing from data keep the value already in the form, and list fields
// keep their fixed length whatever the stored array holds.
func DraftDecoder(data []byte) form.Decoder {
	return func(into *form.FormState) error {
		if err := draftDecMode.Unmarshal(data, into); err != nil {
			return fmt.Errorf("failed to decode draft: %w", err)
		}
		return nil
	}
}
