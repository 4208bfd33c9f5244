package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

func TestFilterMatch(t *testing.T) {
	data := map[string]any{"producerId": "p1", "status": "delivered", "quantity": float64(3)}

	assert.True(t, Eq("producerId", "p1").Match(data))
	assert.False(t, Eq("producerId", "p2").Match(data))
	assert.True(t, In("status", "approved", status("delivered")).Match(data))
	assert.True(t, Eq("quantity", 3).Match(data))
	assert.True(t, Eq("quantity", json.Number("3")).Match(data))
	assert.False(t, Eq("missing", "x").Match(data))
	assert.True(t, MatchAll([]Filter{Eq("producerId", "p1"), In("status", "delivered")}, data))
	assert.True(t, MatchAll(nil, data))
	assert.Equal(t, "producerId == p1", Eq("producerId", "p1").String())
}

func TestTrackerObserve(t *testing.T) {
	filters := []Filter{Eq("status", "waiting_for_approval")}
	tracker := NewTracker(filters, []Document{
		{ID: "o1", Data: map[string]any{"status": "waiting_for_approval"}},
		{ID: "o2", Data: map[string]any{"status": "approved"}},
	})
	require.Equal(t, 1, tracker.Len())

	change, ok := tracker.Observe("o1", &Document{ID: "o1", Data: map[string]any{"status": "waiting_for_approval", "note": "x"}})
	require.True(t, ok)
	assert.Equal(t, ChangeModified, change.Kind)

	change, ok = tracker.Observe("o1", &Document{ID: "o1", Data: map[string]any{"status": "approved"}})
	require.True(t, ok)
	assert.Equal(t, ChangeRemoved, change.Kind)

	_, ok = tracker.Observe("o2", &Document{ID: "o2", Data: map[string]any{"status": "rejected"}})
	assert.False(t, ok)

	change, ok = tracker.Observe("o3", &Document{ID: "o3", Data: map[string]any{"status": "waiting_for_approval"}})
	require.True(t, ok)
	assert.Equal(t, ChangeAdded, change.Kind)

	change, ok = tracker.Observe("o3", nil)
	require.True(t, ok)
	assert.Equal(t, ChangeRemoved, change.Kind)
	assert.Equal(t, "o3", change.Document.ID)
	assert.Equal(t, 0, tracker.Len())
}

func TestTxBuffer(t *testing.T) {
	buf := NewTxBuffer()
	buf.RecordRead(Key{"orders", "o1"}, 3)
	buf.RecordRead(Key{"orders", "o1"}, 4)
	assert.Equal(t, int64(3), buf.Reads[Key{"orders", "o1"}])

	data := map[string]any{"items": []any{map[string]any{"quantity": 1}}}
	require.NoError(t, buf.Set("orders", "o1", data))
	data["items"].([]any)[0].(map[string]any)["quantity"] = 99
	stored := buf.Writes[0].Data["items"].([]any)[0].(map[string]any)
	assert.Equal(t, 1, stored["quantity"])

	require.Error(t, buf.Update("orders", "o1", nil))
	require.Error(t, buf.Set("", "o1", data))
	require.NoError(t, buf.Update("orders", "o1", map[string]any{"status": "delivered"}))
	assert.True(t, buf.Writes[1].Merge)
}

func TestMergeData(t *testing.T) {
	base := map[string]any{"status": "approved", "quantity": 5}
	merged := MergeData(base, map[string]any{"status": "delivered"})
	assert.Equal(t, "delivered", merged["status"])
	assert.Equal(t, 5, merged["quantity"])
	assert.Equal(t, "approved", base["status"])
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 30, 0, 500, time.UTC)
	assert.True(t, TimestampOf(now).Time().Equal(now))
}
