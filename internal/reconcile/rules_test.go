package reconcile

import (
	"testing"

	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeAsset() *inventory.Asset {
	return &inventory.Asset{
		AssetID:    "ASSET-004",
		RackID:     "RACK-001",
		RUPosition: 4,
		RUSize:     2,
		Status:     inventory.StatusActive,
	}
}

func TestEvaluateDecisionTable(t *testing.T) {
	decommissioned := activeAsset()
	decommissioned.Status = inventory.StatusDecommissioned
	maintenance := activeAsset()
	maintenance.Status = inventory.StatusMaintenance

	tests := []struct {
		name       string
		changeType detect.ChangeType
		asset      *inventory.Asset
		want       inventory.DiscrepancyType
		severity   inventory.Severity
		action     string
		match      bool
	}{
		{
			name:       "addition at empty position",
			changeType: detect.Addition,
			asset:      nil,
			want:       inventory.UnregisteredAddition,
			severity:   inventory.SeverityHigh,
			action:     "Register new hardware",
			match:      true,
		},
		{
			name:       "addition over decommissioned asset",
			changeType: detect.Addition,
			asset:      decommissioned,
			want:       inventory.StatusDiscrepancy,
			severity:   inventory.SeverityMedium,
			action:     "Update status to Active",
			match:      true,
		},
		{
			name:       "addition over maintenance asset",
			changeType: detect.Addition,
			asset:      maintenance,
			want:       inventory.StatusDiscrepancy,
			severity:   inventory.SeverityMedium,
			action:     "Update status to Active",
			match:      true,
		},
		{
			name:       "addition over active asset agrees with inventory",
			changeType: detect.Addition,
			asset:      activeAsset(),
			match:      false,
		},
		{
			name:       "removal of registered asset",
			changeType: detect.Removal,
			asset:      activeAsset(),
			want:       inventory.UnregisteredRemoval,
			severity:   inventory.SeverityHigh,
			action:     "Update inventory to reflect removal",
			match:      true,
		},
		{
			name:       "removal of decommissioned asset still flags",
			changeType: detect.Removal,
			asset:      decommissioned,
			want:       inventory.UnregisteredRemoval,
			severity:   inventory.SeverityHigh,
			action:     "Update inventory to reflect removal",
			match:      true,
		},
		{
			name:       "removal at empty position",
			changeType: detect.Removal,
			asset:      nil,
			match:      false,
		},
		{
			name:       "modification at empty position",
			changeType: detect.Modification,
			asset:      nil,
			want:       inventory.UnregisteredModification,
			severity:   inventory.SeverityMedium,
			action:     "Investigate and update inventory",
			match:      true,
		},
		{
			name:       "modification of registered asset",
			changeType: detect.Modification,
			asset:      activeAsset(),
			want:       inventory.ConfigurationDiscrepancy,
			severity:   inventory.SeverityLow,
			action:     "Verify configuration and update if needed",
			match:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := detect.Change{ID: 1, Type: tt.changeType, EstimatedRU: 4, Confidence: 0.8}
			outcome, ok := Evaluate(change, tt.asset)
			require.Equal(t, tt.match, ok)
			if !tt.match {
				return
			}
			assert.Equal(t, tt.want, outcome.Type)
			assert.Equal(t, tt.severity, outcome.Severity)
			assert.Equal(t, tt.action, outcome.RecommendedAction)
			assert.NotEmpty(t, outcome.Description)
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	change := detect.Change{ID: 3, Type: detect.Addition, EstimatedRU: 10, Confidence: 0.5}
	first, ok1 := Evaluate(change, nil)
	second, ok2 := Evaluate(change, nil)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}
