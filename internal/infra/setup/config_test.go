package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_Defaults(t *testing.T) {
	dsn, err := buildDSN("aura", "secret", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "aura:secret@tcp(127.0.0.1:3306)/aura_board?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}

func TestBuildDSN_RequiresUser(t *testing.T) {
	_, err := buildDSN("", "secret", "db", "3306", "aura")
	assert.Error(t, err)
}
