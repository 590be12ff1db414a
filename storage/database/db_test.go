package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kingsman71/Binary-Learning/core"
)

func TestOpenStores(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()

	stores, err := OpenStores(ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, core.EngineInmem, stores.Engine)
	assert.NotNil(t, stores.Applications)
	assert.NotNil(t, stores.Students)
	assert.Nil(t, stores.SQL)
	assert.NoError(t, stores.Close(ctx))

	conf.Database.Engine = "cassandra"
	_, err = OpenStores(ctx, conf)
	assert.Error(t, err)
}
