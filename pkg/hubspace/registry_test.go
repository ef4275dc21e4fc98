package hubspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotClassification(t *testing.T) {
	snapshot := fixtureSnapshot(t)

	assert.Equal(t, []string{"lght-0000-0000-0000-000000000001"}, snapshot.Lights())
	// ceiling-fan counts as a fan
	assert.Equal(t, []string{"fan0-0000-0000-0000-000000000002"}, snapshot.Fans())
}

func TestSnapshotOutletSplitting(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	refs := snapshot.Switches()

	// three-outlet strip splits, single-toggle switch does not
	assert.Equal(t, []SwitchRef{
		{MetadeviceID: "strp-0000-0000-0000-000000000003", OutletIndex: 1},
		{MetadeviceID: "strp-0000-0000-0000-000000000003", OutletIndex: 2},
		{MetadeviceID: "strp-0000-0000-0000-000000000003", OutletIndex: 3},
		{MetadeviceID: "swch-0000-0000-0000-000000000004", OutletIndex: 0},
	}, refs)

	assert.Equal(t, "strp-0000-0000-0000-000000000003_2", refs[1].UniqueID())
	assert.Equal(t, "swch-0000-0000-0000-000000000004", refs[3].UniqueID())

	assert.Equal(t, FunctionKey{Class: FunctionClassToggle, Instance: "outlet-2"}, refs[1].ToggleKey())
	assert.Equal(t, FunctionKey{Class: FunctionClassToggle}, refs[3].ToggleKey())
}

func TestParseSwitchUniqueID(t *testing.T) {
	ref := ParseSwitchUniqueID("strp-0000-0000-0000-000000000003_2")
	assert.Equal(t, SwitchRef{MetadeviceID: "strp-0000-0000-0000-000000000003", OutletIndex: 2}, ref)

	ref = ParseSwitchUniqueID("swch-0000-0000-0000-000000000004")
	assert.Equal(t, SwitchRef{MetadeviceID: "swch-0000-0000-0000-000000000004", OutletIndex: 0}, ref)
}

func TestSwitchRefRoundTrip(t *testing.T) {
	snapshot := fixtureSnapshot(t)
	for _, ref := range snapshot.Switches() {
		assert.Equal(t, ref, ParseSwitchUniqueID(ref.UniqueID()))
	}
}
