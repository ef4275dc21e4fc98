package hubspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var speedLabels = []string{"fan-speed-025", "fan-speed-050", "fan-speed-075", "fan-speed-100"}

func TestOrderedListItemToPercentage(t *testing.T) {
	pct, err := OrderedListItemToPercentage(speedLabels, "fan-speed-025")
	assert.NoError(t, err)
	assert.Equal(t, 0, pct)

	pct, err = OrderedListItemToPercentage(speedLabels, "fan-speed-050")
	assert.NoError(t, err)
	assert.Equal(t, 33, pct)

	pct, err = OrderedListItemToPercentage(speedLabels, "fan-speed-075")
	assert.NoError(t, err)
	assert.Equal(t, 66, pct)

	pct, err = OrderedListItemToPercentage(speedLabels, "fan-speed-100")
	assert.NoError(t, err)
	assert.Equal(t, 100, pct)

	_, err = OrderedListItemToPercentage(speedLabels, "fan-speed-000")
	assert.ErrorIs(t, err, ErrNotInList)

	_, err = OrderedListItemToPercentage(nil, "fan-speed-050")
	assert.ErrorIs(t, err, ErrNotInList)
}

func TestPercentageToOrderedListItem(t *testing.T) {
	item, err := PercentageToOrderedListItem(speedLabels, 0)
	assert.NoError(t, err)
	assert.Equal(t, "fan-speed-025", item)

	item, err = PercentageToOrderedListItem(speedLabels, 33)
	assert.NoError(t, err)
	assert.Equal(t, "fan-speed-050", item)

	item, err = PercentageToOrderedListItem(speedLabels, 50)
	assert.NoError(t, err)
	assert.Equal(t, "fan-speed-075", item)

	item, err = PercentageToOrderedListItem(speedLabels, 100)
	assert.NoError(t, err)
	assert.Equal(t, "fan-speed-100", item)

	// out of range clamps
	item, err = PercentageToOrderedListItem(speedLabels, 150)
	assert.NoError(t, err)
	assert.Equal(t, "fan-speed-100", item)

	_, err = PercentageToOrderedListItem(nil, 50)
	assert.Error(t, err)
}

func TestPercentageSingleItemList(t *testing.T) {
	single := []string{"fan-speed-100"}

	pct, err := OrderedListItemToPercentage(single, "fan-speed-100")
	assert.NoError(t, err)
	assert.Equal(t, 100, pct)

	item, err := PercentageToOrderedListItem(single, 40)
	assert.NoError(t, err)
	assert.Equal(t, "fan-speed-100", item)
}

func TestPercentageRoundTrip(t *testing.T) {
	for _, label := range speedLabels {
		pct, err := OrderedListItemToPercentage(speedLabels, label)
		assert.NoError(t, err)
		back, err := PercentageToOrderedListItem(speedLabels, pct)
		assert.NoError(t, err)
		assert.Equal(t, label, back)
	}
}
