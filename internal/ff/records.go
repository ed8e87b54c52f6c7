package ff

import (
	"encoding/json"
	"fmt"
)

// Placeholder is written in place of optional vendor fields that are absent.
const Placeholder = "N/A"

// Record is a decoded vendor JSON object. Numbers are kept as json.Number so
// that values round-trip into snapshots unchanged.
type Record map[string]any

// String returns the value at key rendered as a string, or "" if absent or null.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Present reports whether key holds a non-null, non-empty value.
func (r Record) Present(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// GetOr returns the value at key when the key exists (even if null), else def.
func (r Record) GetOr(key string, def any) any {
	if v, ok := r[key]; ok {
		return v
	}
	return def
}

// Records returns the value at key as a slice of Records, skipping non-object entries.
func (r Record) Records(key string) []Record {
	items, _ := r[key].([]any)
	out := make([]Record, 0, len(items))
	for _, item := range items {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, Record(m))
		case Record:
			out = append(out, m)
		}
	}
	return out
}

// Environment is the flattened environment snapshot record.
type Environment struct {
	ID                  string   `json:"ID"`
	AccountID           string   `json:"Account ID"`
	Name                string   `json:"Name"`
	IsProduction        bool     `json:"Is Production"`
	GuestAuthentication []string `json:"Guest Authentication"`
	Features            any      `json:"Features"`
	PublicKey           string   `json:"PUBLIC_KEY,omitempty"`
	SecretKey           string   `json:"SECRET_KEY,omitempty"`
}

// Space is the flattened space snapshot record. Optional fields hold either the
// vendor value or Placeholder.
type Space struct {
	ID                string `json:"ID"`
	WorkbooksCount    any    `json:"Workbooks Count"`
	CreatedByUserID   any    `json:"Created By User ID"`
	CreatedByUserName any    `json:"Created By User Name"`
	SpaceConfigID     any    `json:"Space Config ID"`
	EnvironmentID     string `json:"Environment ID"`
	EnvironmentName   string `json:"Environment Name"`
	Name              string `json:"Name"`
	PrimaryWorkbookID any    `json:"Primary Workbook ID"`
	DisplayOrder      any    `json:"Display Order"`
	Access            any    `json:"Access"`
	Metadata          any    `json:"Metadata"`
}

// Workbook is the normalized workbook snapshot record.
type Workbook struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SpaceID       string `json:"spaceId"`
	EnvironmentID string `json:"environmentId"`
	Sheets        any    `json:"sheets"`
	Labels        any    `json:"labels"`
	Actions       any    `json:"actions"`
	UpdatedAt     any    `json:"updatedAt"`
	CreatedAt     any    `json:"createdAt"`
	Namespace     any    `json:"namespace"`
}

// SubscriptionToken is the per-environment realtime subscription credential.
type SubscriptionToken struct {
	Name          string `json:"Name"`
	EnvironmentID string `json:"Environment_ID"`
	AccountID     any    `json:"Account_ID"`
	SubscribeKey  any    `json:"Subscribe_Key"`
	TTL           any    `json:"TTL"`
	Token         any    `json:"SubscriptionToken"`
}

// APIKey types returned by the platform. Anything other than KeyTypePublishable
// is treated as a secret key.
const KeyTypePublishable = "PUBLISHABLE"
