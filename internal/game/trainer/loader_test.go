package trainer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/monbattle/internal/game/trainer"
)

const redYAML = `
id: red
name: Red
battle_box:
  - id: red-1
    name: Charmander
    level: 8
    max_hp: 30
    attack: 22
    defense: 18
    types: [Fire]
  - id: red-2
    name: Squirtle
    level: 7
    max_hp: 32
    current_hp: 10
    attack: 18
    defense: 24
    types: [Water]
`

func TestLoadFromBytes(t *testing.T) {
	tr, err := trainer.LoadFromBytes([]byte(redYAML))
	require.NoError(t, err)
	assert.Equal(t, "Red", tr.Name)
	require.Len(t, tr.BattleBox, 2)
	assert.Equal(t, 30, tr.BattleBox[0].CurrentHP, "missing current_hp starts at full health")
	assert.Equal(t, 10, tr.BattleBox[1].CurrentHP)
	assert.Equal(t, []string{"Water"}, tr.BattleBox[1].Types)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	_, err := trainer.LoadFromBytes([]byte("id: [unclosed"))
	assert.Error(t, err)

	_, err = trainer.LoadFromBytes([]byte("id: red\nbattle_box: []\n"))
	assert.ErrorContains(t, err, "name must not be empty")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "red.yaml"), []byte(redYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	trainers, err := trainer.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, trainers, 1)
	assert.Equal(t, "red", trainers[0].ID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\nname: Bad\nbattle_box:\n  - name: NoID\n    level: 1\n    max_hp: 1\n"), 0o644))
	_, err = trainer.LoadDir(dir)
	assert.ErrorContains(t, err, "bad.yaml")
}
