package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLiteral(t *testing.T) {
	assert.Equal(t, IntValue(42), ParseLiteral("42"))
	assert.Equal(t, IntValue(-7), ParseLiteral("-7"))
	assert.Equal(t, FloatValue(36.5), ParseLiteral("36.5"))
	assert.Equal(t, StringValue("sage"), ParseLiteral("sage"))
}

func TestNum(t *testing.T) {
	f, ok := Num(IntValue(120))
	assert.True(t, ok)
	assert.Equal(t, 120.0, f)

	f, ok = Num(StringValue("36.5"))
	assert.True(t, ok)
	assert.Equal(t, 36.5, f)

	_, ok = Num(StringValue("sage"))
	assert.False(t, ok)

	_, ok = Num(BoolValue(true))
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	assert.Equal(t, "120", Text(IntValue(120)))
	assert.Equal(t, "36.5", Text(FloatValue(36.5)))
	assert.Equal(t, "sage", Text(StringValue("sage")))
	assert.Equal(t, "true", Text(BoolValue(true)))
	assert.Equal(t, "false", Text(BoolValue(false)))
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(IntValue(1)))
	assert.False(t, Truthy(IntValue(0)))
	assert.True(t, Truthy(BoolValue(true)))
	assert.False(t, Truthy(StringValue("0")))
	assert.True(t, Truthy(StringValue("1")))
	assert.True(t, Truthy(StringValue("true")))
	assert.False(t, Truthy(StringValue("sage")))
}
