package batch

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"basicd/services/basic/internal/simulate"
)

func TestSnapshotIsDeepCopy(t *testing.T) {
	st := newState(time.Now().UTC())
	st.Results = append(st.Results, simulate.Result{ID: "a", Name: "service-1"})

	snap := st.snapshot()
	st.Results = append(st.Results, simulate.Result{ID: "b", Name: "service-2"})
	st.Results[0].Name = "mutated"

	require.Len(t, snap.Results, 1)
	require.Equal(t, "service-1", snap.Results[0].Name)
}

func TestStateWireShape(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := newState(started)

	data, err := json.Marshal(st.snapshot())
	require.NoError(t, err)

	body := string(data)
	require.Contains(t, body, `"phase":"IN_PROGRESS"`)
	require.Contains(t, body, `"results":[]`, "empty results must encode as an array")
	require.NotContains(t, body, "completed_at", "completed_at is absent until the terminal snapshot")

	st.Results = append(st.Results, errorResult(errors.New("boom")))
	st.complete(started.Add(time.Second))

	data, err = json.Marshal(st.snapshot())
	require.NoError(t, err)
	body = string(data)
	require.Contains(t, body, `"phase":"COMPLETE"`)
	require.Contains(t, body, `"completed_at"`)
	for _, key := range []string{`"id"`, `"name"`, `"version"`, `"value"`, `"kind"`} {
		require.True(t, strings.Contains(body, key), "result entry missing %s", key)
	}
}

func TestErrorResultShape(t *testing.T) {
	res := errorResult(errors.New("simulated rest call service-2 failed"))
	require.Equal(t, KindError, res.Kind)
	require.Equal(t, errorEntryName, res.Name)
	require.Equal(t, simulate.ResultVersion, res.Version)
	require.Equal(t, "simulated rest call service-2 failed", res.Value)
	require.NotEmpty(t, res.ID)
}
