package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumsql/qsql/internal/cond"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(b))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	b, err := MarshalCanonical("a < b & c > d")
	require.NoError(t, err)
	assert.Equal(t, `"a < b & c > d"`, string(b))
}

func TestMarshalCanonical_Values(t *testing.T) {
	b, err := MarshalCanonical(cond.IntValue(42))
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))

	b, err = MarshalCanonical(cond.FloatValue(36.5))
	require.NoError(t, err)
	assert.Equal(t, "36.5", string(b))

	b, err = MarshalCanonical(cond.StringValue("sage"))
	require.NoError(t, err)
	assert.Equal(t, `"sage"`, string(b))

	b, err = MarshalCanonical(cond.BoolValue(true))
	require.NoError(t, err)
	assert.Equal(t, "true", string(b))
}

func TestMarshalCanonical_WholeFloatsStayShort(t *testing.T) {
	b, err := MarshalCanonical(1.0)
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))
}

func TestMarshalCanonical_NestedStructures(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"probs":   []float64{1, 0, 0.5},
		"matches": []string{"P1"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"matches":["P1"],"probs":[1,0,0.5]}`, string(b))
}

func TestMarshalCanonical_NullForbidden(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
}

func TestMarshalCanonical_NaNForbidden(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	_, err := MarshalCanonical(nan)
	assert.Error(t, err)
}

func TestHashWithDomain_SeparatesDomains(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain(domainUnit, data), hashWithDomain(domainOracle, data))
}
