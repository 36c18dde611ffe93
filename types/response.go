package types

import "github.com/bytedance/sonic"

// Response carries the terminal transport result for one transfer.
// Headers are flattened to a single map, multi-valued headers joined ", ".
// Body is kept raw; parsing is left to the caller (see DecodeJSON).
type Response struct {
	Body    string            `json:"body"`
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
}

// OK reports whether the status counts as a successful upload.
// 2xx and 304 are success, everything else (including status 0 for
// network-level failures) is not.
func (r Response) OK() bool {
	return (r.Status >= 200 && r.Status < 300) || r.Status == 304
}

// DecodeJSON unmarshals the raw body into v.
func (r Response) DecodeJSON(v any) error {
	return sonic.Unmarshal([]byte(r.Body), v)
}
