package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/pkg/database"
)

const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func testConfig(strategy string) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = database.MemoryPath
	cfg.Auth.Secret = testSecret
	cfg.Access.Strategy = strategy
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(AccessStrategyIndex), nil)
	assert.Error(t, err)

	cfg := testConfig(AccessStrategyIndex)
	cfg.Auth.Secret = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig("graph")
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	for _, strategy := range []string{AccessStrategyIndex, AccessStrategyFanout} {
		t.Run(strategy, func(t *testing.T) {
			c, err := NewContainer(testConfig(strategy), zap.NewNop())
			require.NoError(t, err)
			assert.False(t, c.Ready())

			require.NoError(t, c.Start(context.Background()))
			assert.True(t, c.Ready())
			assert.Error(t, c.Start(context.Background()), "second start")

			svc := c.Services()
			require.NotNil(t, svc)
			assert.NotNil(t, svc.Access)
			assert.NotNil(t, svc.Timesheets)
			assert.NotNil(t, svc.Approvals)
			assert.NotNil(t, svc.Membership)
			assert.NotNil(t, svc.Exports)
			assert.NotNil(t, c.Issuer())

			if strategy == AccessStrategyIndex {
				assert.Equal(t, 1, c.Workers().Count())
			} else {
				assert.Equal(t, 0, c.Workers().Count())
			}

			health := c.Health()
			assert.True(t, health.Overall)
			assert.True(t, health.Components["database"].Healthy)

			require.NoError(t, c.Close())
			assert.False(t, c.Ready())
			assert.Error(t, c.Close())
			assert.Error(t, c.Start(context.Background()))
		})
	}
}

func TestContainer_IssuerRoundTrip(t *testing.T) {
	c, err := NewContainer(testConfig(AccessStrategyFanout), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	token, err := c.Issuer().Issue("acct-1", "org-1", "Ada")
	require.NoError(t, err)

	claims, err := c.Issuer().Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID())
	assert.Equal(t, "org-1", claims.OrganizationID)
}

func TestHealth_NotStarted(t *testing.T) {
	c, err := NewContainer(testConfig(AccessStrategyIndex), zap.NewNop())
	require.NoError(t, err)

	health := c.Health()
	assert.False(t, health.Overall)
	assert.Equal(t, "not initialized", health.Components["database"].Message)
}
