package alert_test

import (
	"dormancy-monitor/internal/alert"
	"dormancy-monitor/internal/dormancy"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAlerts(t *testing.T) {
	t.Run("Empty tiers are omitted", func(t *testing.T) {
		result := &dormancy.AnalysisResult{}
		assert.Empty(t, alert.BuildAlerts(result))
	})

	t.Run("Closure alert reason names both thresholds", func(t *testing.T) {
		result := &dormancy.AnalysisResult{
			ClosureNeeded: []dormancy.AccountActivity{{AccountID: "acc-1"}},
		}

		alerts := alert.BuildAlerts(result)

		require.Len(t, alerts, 1)
		assert.Equal(t, alert.TagClosureNeeded, alerts[0].Tag)
		assert.Contains(t, alerts[0].Reason, "365 days")
		assert.Contains(t, alerts[0].Reason, "120 days")
	})

	t.Run("Communication alert reason names its threshold", func(t *testing.T) {
		result := &dormancy.AnalysisResult{
			CommunicationNeeded: []dormancy.AccountActivity{{AccountID: "acc-1"}},
			ClosureNeeded:       []dormancy.AccountActivity{{AccountID: "acc-2"}},
		}

		alerts := alert.BuildAlerts(result)

		require.Len(t, alerts, 2)
		assert.Equal(t, alert.TagCommunicationNeeded, alerts[0].Tag)
		assert.Contains(t, alerts[0].Reason, "270 days")
		assert.Len(t, alerts[0].Accounts, 1)
	})
}
