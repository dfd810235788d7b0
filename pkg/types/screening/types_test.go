package screening

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

func TestScreenRequest_Validate(t *testing.T) {
	err := ScreenRequest{}.Validate(10)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	req := ScreenRequest{Queries: make([]Query, 3)}
	assert.NoError(t, req.Validate(3))
	assert.NoError(t, req.Validate(0), "zero disables the limit")

	err = req.Validate(2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 2 queries")
}

func TestScreenRequest_DecodesWireNames(t *testing.T) {
	var req ScreenRequest
	body := `{"queries":[{"source":"Willow","name":"Salicin","category":"glycoside","smiles":"OCC1OC(Oc2ccccc2CO)C(O)C(O)C1O"}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.Queries, 1)
	assert.Equal(t, "Willow", req.Queries[0].Source)
	assert.Equal(t, "OCC1OC(Oc2ccccc2CO)C(O)C(O)C1O", req.Queries[0].SMILES)
}

func TestResult_TargetMatches(t *testing.T) {
	r := Result{Matches: []Match{
		{PDBID: "1ABC", Annotation: Annotation{IsTarget: true}},
		{PDBID: "2DEF"},
		{PDBID: "3GHI", Annotation: Annotation{IsTarget: true}},
	}}
	got := r.TargetMatches()
	require.Len(t, got, 2)
	assert.Equal(t, "3GHI", got[1].PDBID)
}

//Personal.AI order the ending
