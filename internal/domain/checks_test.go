package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckGridCompleteness(t *testing.T) {
	w, err := NewWindow(day("2023-01-01"), day("2023-01-03"))
	require.NoError(t, err)
	grid, _, err := BuildGrid([]DailyCount{
		{AdminCode: 1, Species: "A", Date: day("2023-01-01"), Count: 1},
		{AdminCode: 2, Species: "B", Date: day("2023-01-02"), Count: 1},
	}, w)
	require.NoError(t, err)
	require.Empty(t, CheckGridCompleteness(grid, w))

	t.Run("missing day", func(t *testing.T) {
		issues := CheckGridCompleteness(grid[1:], w)
		assert.NotEmpty(t, issues)
		assert.Contains(t, issues[0], "series 1/A has 2 of 3 days")
	})

	t.Run("duplicate cell", func(t *testing.T) {
		issues := CheckGridCompleteness(append(grid[:len(grid):len(grid)], grid[0]), w)
		assert.Contains(t, issues, "duplicate cell 1/A/2023/01/01")
	})

	t.Run("outside window", func(t *testing.T) {
		extra := DailyCount{AdminCode: 1, Species: "A", Date: day("2023-01-04")}
		issues := CheckGridCompleteness(append(grid[:len(grid):len(grid)], extra), w)
		assert.Contains(t, issues, "cell 1/A/2023/01/04 outside window 2023/01/01..2023/01/03")
	})
}

func TestCheckNonDestructive(t *testing.T) {
	original := []DailyCount{
		{AdminCode: 1, Species: "A", Date: day("2023-01-01"), Count: 2},
		{AdminCode: 1, Species: "A", Date: day("2023-01-02"), Count: 0},
	}

	ok := []DailyCount{original[0], {AdminCode: 1, Species: "A", Date: day("2023-01-02"), Count: 5}}
	assert.Empty(t, CheckNonDestructive(original, ok))

	changed := []DailyCount{{AdminCode: 1, Species: "A", Date: day("2023-01-01"), Count: 3}, original[1]}
	assert.Equal(t, []string{"cell 1/A/2023/01/01 changed from 2 to 3"}, CheckNonDestructive(original, changed))

	dropped := original[:1]
	issues := CheckNonDestructive(original, dropped)
	assert.Contains(t, issues, "row count changed from 2 to 1")
	assert.Contains(t, issues, "cell 1/A/2023/01/02 missing after redistribution")
}

func TestCheckImputationTotality(t *testing.T) {
	rows := []ModelRow{
		{DailyCount: DailyCount{AdminCode: 1, Species: "A", Date: day("2023-01-01")}, Env: env(1, 1, 1, 1, 1)},
		{DailyCount: DailyCount{AdminCode: 1, Species: "A", Date: day("2023-01-02")}, Env: env(1, 1, 1, nan, 1)},
	}
	assert.Equal(t, []string{"LST_C missing at 1/A/2023/01/02"}, CheckImputationTotality(rows))
	assert.Empty(t, CheckImputationTotality(rows[:1]))
}

func TestCheckIssuesAreCapped(t *testing.T) {
	rows := make([]ModelRow, 30)
	for i := range rows {
		rows[i].Env = env(nan, 1, 1, 1, 1)
	}
	issues := CheckImputationTotality(rows)
	require.Len(t, issues, maxIssues+1)
	assert.Equal(t, "... and 10 more", issues[maxIssues])
}
