package types

import "encoding/json"

// CodeRun is one submitted snippet of code.
type CodeRun struct {
	// ID is generated at creation from the submission time and a random
	// suffix. Uniqueness is best-effort.
	ID string `json:"id"`

	// Time is the ISO-8601 timestamp of the submission.
	Time string `json:"time"`

	// Language is the language tag supplied by the client.
	Language string `json:"language"`

	// Code is the submitted source text.
	Code string `json:"code"`

	// Extra holds members this type has no field for.
	Extra map[string]json.RawMessage `json:"-"`
}

type codeRunFields CodeRun

var codeRunKeys = []string{"id", "time", "language", "code"}

// UnmarshalJSON keeps unknown members in Extra.
func (r *CodeRun) UnmarshalJSON(data []byte) error {
	var fields codeRunFields
	extra, err := decodeObject(data, &fields, codeRunKeys...)
	if err != nil {
		return err
	}
	*r = CodeRun(fields)
	r.Extra = extra
	return nil
}

// MarshalJSON writes the known fields followed by Extra.
func (r CodeRun) MarshalJSON() ([]byte, error) {
	return encodeObject(codeRunFields(r), r.Extra)
}

// CodeRunEvent is published after a code run has been persisted.
type CodeRunEvent struct {
	UserID  string  `json:"userID"`
	CodeRun CodeRun `json:"codeRun"`
}
