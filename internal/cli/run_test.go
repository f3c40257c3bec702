package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientCondition = "(bp BETWEEN 100 AND 130) OR (temp > 38 AND NOT fever)"

func TestRunPatientsText(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)

	out, _, err := executeCommand(t, "run", "--db", db, "--table", "patients", patientCondition)
	require.NoError(t, err)

	assert.Contains(t, out, "row 0  P=1.0000  [match]")
	assert.Contains(t, out, "row 1  P=0.0000")
	assert.Contains(t, out, "row 2  P=0.0000")
	assert.Contains(t, out, "1 match(es): rows 0")
}

func TestRunPatientsJSON(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)

	out, _, err := executeCommand(t, "--format", "json", "run", "--db", db, "--table", "patients", patientCondition)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   runReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "patients", resp.Data.Table)
	assert.Equal(t, 4, resp.Data.Width)
	assert.Equal(t, "dense", resp.Data.Mode)
	assert.Equal(t, []int{0}, resp.Data.Matches)
	assert.NotEmpty(t, resp.Data.Fingerprint)
	assert.NotEmpty(t, resp.Data.RunToken)

	require.Len(t, resp.Data.Probabilities, 3)
	require.NotNil(t, resp.Data.Probabilities[0])
	assert.Equal(t, 1.0, *resp.Data.Probabilities[0])
	assert.Equal(t, 0.0, *resp.Data.Probabilities[1])
	assert.Equal(t, 0.0, *resp.Data.Probabilities[2])
}

func TestRunEmptyTable(t *testing.T) {
	db := testDB(t)
	_, _, err := executeCommand(t, "create-table", "--db", db, "patients", "id", "bp", "temp", "fever")
	require.NoError(t, err)

	out, _, err := executeCommand(t, "run", "--db", db, "--table", "patients", patientCondition)
	require.NoError(t, err)
	assert.Contains(t, out, "mode=dense")
	assert.Contains(t, out, "no matches")
}

func TestRunSyntaxErrorExitCode(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)

	out, _, err := executeCommand(t, "run", "--db", db, "--table", "patients", "bp > >")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeSyntax)
}

func TestRunUnknownColumn(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)

	out, _, err := executeCommand(t, "run", "--db", db, "--table", "patients", "pulse > 60")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeUnknownColumn)
}

func TestRunUnknownTable(t *testing.T) {
	_, _, err := executeCommand(t, "run", "--db", testDB(t), "--table", "ghost", "x > 1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunThresholdOverride(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)

	// Everything scores 0 or 1; threshold 0 admits every row.
	out, _, err := executeCommand(t, "run", "--db", db, "--table", "patients", "--threshold", "0", patientCondition)
	require.NoError(t, err)
	assert.Contains(t, out, "3 match(es)")
}

func TestRunWithConfigFile(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)
	cfgPath := writeConfig(t, "dense_limit: 1\nmax_workers: 2\n")

	out, _, err := executeCommand(t, "--format", "json", "run", "--db", db, "--table", "patients", "--config", cfgPath, patientCondition)
	require.NoError(t, err)

	var resp struct {
		Data runReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "sparse", resp.Data.Mode)
	assert.Equal(t, []int{0}, resp.Data.Matches)
}

func TestRunBadConfigFile(t *testing.T) {
	db := testDB(t)
	setupPatients(t, db)
	cfgPath := writeConfig(t, "match_threshold: 2\n")

	_, _, err := executeCommand(t, "run", "--db", db, "--table", "patients", "--config", cfgPath, patientCondition)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
