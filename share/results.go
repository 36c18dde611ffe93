// Package share keeps recently finished transfer results available for a
// while after the item itself may have left the queue (removeAfterUpload,
// explicit removal). Entries expire on their own.
package share

import (
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/uploadqueue-go/tool"
	"github.com/moyoez/uploadqueue-go/types"
)

const (
	DefaultTTL = 300 * time.Second // set 300 seconds.
)

// TransferResult is one terminal outcome, keyed by item ID.
type TransferResult struct {
	ItemID   string               `json:"itemId"`
	File     types.FileDescriptor `json:"file"`
	State    string               `json:"state"` // success | error | cancelled
	Response types.Response       `json:"response"`
	When     time.Time            `json:"when"`
}

// Results is a TTL cache of completed transfers.
type Results struct {
	cache *ttlworker.Cache[string, TransferResult]
}

// NewResults creates a result cache; ttl <= 0 selects the default.
func NewResults(ttl time.Duration) *Results {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Results{cache: ttlworker.NewCache[string, TransferResult](ttl)}
}

// Put records the terminal outcome for an item.
func (r *Results) Put(res TransferResult) {
	if res.When.IsZero() {
		res.When = time.Now()
	}
	r.cache.Set(res.ItemID, res)
	tool.DefaultLogger.Debugf("Recorded %s result for %s", res.State, res.File.Name)
}

// Get returns the recorded result for an item, if it has not expired.
func (r *Results) Get(itemID string) (TransferResult, bool) {
	res := r.cache.Get(itemID)
	return res, res.ItemID != ""
}

// List returns the IDs of all unexpired results.
func (r *Results) List() []string {
	keys := make([]string, 0)
	err := r.cache.Range(func(k string, v TransferResult) error {
		keys = append(keys, k)
		return nil
	})
	if err != nil {
		return nil
	}
	return keys
}
