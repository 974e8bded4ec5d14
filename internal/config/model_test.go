package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/simbatch/internal/parameter"
)

func TestModel_Pick(t *testing.T) {
	m := NewModel()
	_, err := m.Job("")
	require.ErrorContains(t, err, "no job is defined")

	m.Jobs["a"] = &Job{Name: "a"}
	j, err := m.Job("")
	require.NoError(t, err)
	assert.Equal(t, "a", j.Name)

	m.Jobs["b"] = &Job{Name: "b"}
	_, err = m.Job("")
	require.ErrorContains(t, err, "(a, b)")

	j, err = m.Job("b")
	require.NoError(t, err)
	assert.Equal(t, "b", j.Name)

	_, err = m.Cluster("chtc")
	require.ErrorContains(t, err, `cluster "chtc" is not defined`)
}

func TestJob_Validate(t *testing.T) {
	require.NoError(t, (&Job{Name: "ok", Parameters: []parameter.Parameter{{Name: "x"}}}).Validate())

	err := (&Job{Parameters: []parameter.Parameter{{Name: "x"}, {Name: "x"}, {Name: ""}}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job name is required")
	assert.Contains(t, err.Error(), `parameter "x" is defined more than once`)
	assert.ErrorIs(t, err, parameter.ErrEmptyName)
}
