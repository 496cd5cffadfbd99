package searchdb

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNoTotal = errors.New("response has no hit total")

// ResponseTotal reads hits.total from a search response. Both the
// {"value": n, "relation": "eq"} object and the bare number returned by
// older clusters are accepted.
func ResponseTotal(body json.RawMessage) (int64, error) {
	var response struct {
		Hits struct {
			Total json.RawMessage `json:"total"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("could not decode search response: %w", err)
	}

	raw := response.Hits.Total
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ErrNoTotal
	}

	var total struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &total); err == nil {
		return total.Value, nil
	}

	var count int64
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("could not decode hit total %s: %w", string(raw), err)
	}

	return count, nil
}
