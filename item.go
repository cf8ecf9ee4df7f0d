package pipeshell

import (
	"encoding/json"
	"fmt"
)

// Item is a single JSON-representable value flowing between stages. Plain
// values are whatever encoding/json produces (nil, bool, float64, string,
// []any, map[string]any) or any Go value that marshals to JSON. The one
// distinguished variant is *ApprovalRequest.
type Item = any

// ApprovalRequestType is the "type" tag of a serialized ApprovalRequest.
const ApprovalRequestType = "approval_request"

// ApprovalRequest is emitted by a stage that needs out-of-band human approval
// before the rest of the pipeline may run. When it is the only item a halting
// stage produces, the execution stops and a Continuation is captured.
type ApprovalRequest struct {
	Items  []Item
	Prompt string
}

// NewApprovalRequest returns an ApprovalRequest carrying a copy of items.
func NewApprovalRequest(prompt string, items []Item) *ApprovalRequest {
	return &ApprovalRequest{Prompt: prompt, Items: copyItems(items)}
}

type approvalRequestJSON struct {
	Type   string `json:"type"`
	Items  []Item `json:"items"`
	Prompt string `json:"prompt"`
}

// MarshalJSON encodes the request in its tagged form.
func (r *ApprovalRequest) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(approvalRequestJSON{
		Type:   ApprovalRequestType,
		Items:  items,
		Prompt: r.Prompt,
	})
}

// UnmarshalJSON decodes the tagged form, rejecting any other type tag.
func (r *ApprovalRequest) UnmarshalJSON(data []byte) error {
	var raw approvalRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != ApprovalRequestType {
		return fmt.Errorf("unexpected item type %q", raw.Type)
	}
	r.Items = raw.Items
	r.Prompt = raw.Prompt
	return nil
}

// AsApprovalRequest reports whether item is an *ApprovalRequest.
func AsApprovalRequest(item Item) (*ApprovalRequest, bool) {
	req, ok := item.(*ApprovalRequest)
	return req, ok && req != nil
}

// soleApprovalRequest returns the request when items is exactly one
// *ApprovalRequest. An approval request mixed with other items is not a halt.
func soleApprovalRequest(items []Item) (*ApprovalRequest, bool) {
	if len(items) != 1 {
		return nil, false
	}
	return AsApprovalRequest(items[0])
}

func copyItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
