package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerID_Injective(t *testing.T) {
	seen := make(map[int64][2]int64)

	for vaccineID := int64(1); vaccineID <= 20000; vaccineID++ {
		for _, off := range Catalog {
			id := TriggerID(vaccineID, off)
			if prev, ok := seen[id]; ok {
				t.Fatalf("collision: (%d,%d) and (%d,%d) => %d", prev[0], prev[1], vaccineID, off, id)
			}
			seen[id] = [2]int64{vaccineID, int64(off)}
		}
	}
}

func TestTriggerID_Format(t *testing.T) {
	assert.Equal(t, int64(42007), TriggerID(42, 7))
	assert.Equal(t, int64(42000), TriggerID(42, 0))
}

func TestCatalogIDs(t *testing.T) {
	assert.Equal(t, []int64{5000, 5001, 5003, 5007, 5014}, CatalogIDs(5))
}

func TestValidOffsetAndCatalog(t *testing.T) {
	assert.True(t, ValidOffset(0))
	assert.True(t, ValidOffset(999))
	assert.False(t, ValidOffset(1000))
	assert.False(t, ValidOffset(-1))

	assert.True(t, InCatalog(14))
	assert.False(t, InCatalog(2))

	for _, off := range DefaultOffsets {
		assert.True(t, InCatalog(off))
	}
}
