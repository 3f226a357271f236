package models

import "encoding/json"

// AccountListResponse is the Wargaming account/list envelope. Data stays raw
// until Status has been checked because error envelopes do not carry a list.
type AccountListResponse struct {
	Status string          `json:"status"`
	Error  *UpstreamError  `json:"error,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type UpstreamError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// AccountEntry is one account/list match. AccountID is kept raw so that
// missing and malformed ids can be told apart.
type AccountEntry struct {
	Nickname  string          `json:"nickname"`
	AccountID json.RawMessage `json:"account_id"`
}

// Entries decodes the data list of a successful response.
func (r *AccountListResponse) Entries() ([]AccountEntry, error) {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil, nil
	}
	var entries []AccountEntry
	if err := json.Unmarshal(r.Data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// TomatoOverallResponse is the tomato.gg player/overall envelope.
type TomatoOverallResponse struct {
	Data json.RawMessage `json:"data"`
}
