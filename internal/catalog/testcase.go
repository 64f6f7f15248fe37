package catalog

import (
	"encoding/json"

	appErr "judgeworker/pkg/errors"
)

// TestCase pairs the input lines fed to the submission with the expected
// output. The wire form is a two-element array, [inputLines, expectedOutput],
// which is also the shape the in-sandbox runner receives.
type TestCase struct {
	InputLines     []string
	ExpectedOutput string
}

// MarshalJSON encodes the test case as [inputLines, expectedOutput].
func (t TestCase) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.InputLines, t.ExpectedOutput})
}

// UnmarshalJSON decodes the two-element array form.
func (t *TestCase) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return appErr.Wrapf(err, appErr.InvalidFormat, "test case is not an array")
	}
	if len(pair) != 2 {
		return appErr.Newf(appErr.InvalidFormat, "test case has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &t.InputLines); err != nil {
		return appErr.Wrapf(err, appErr.InvalidFormat, "test case input lines")
	}
	if err := json.Unmarshal(pair[1], &t.ExpectedOutput); err != nil {
		return appErr.Wrapf(err, appErr.InvalidFormat, "test case expected output")
	}
	return nil
}
