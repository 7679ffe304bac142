package errkind

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	input := NewInput(eris.New("bad candidate"))
	config := NewConfig(eris.New("no catalogue"))
	persistence := NewPersistence(eris.New("disk full"))
	conflict := NewConflict(eris.New("duplicate entry"))

	assert.True(t, IsInput(input))
	assert.True(t, IsConfig(config))
	assert.True(t, IsPersistence(persistence))
	assert.True(t, IsConflict(conflict))

	// Kinds do not cross-match.
	assert.False(t, IsInput(config))
	assert.False(t, IsConfig(persistence))
	assert.False(t, IsPersistence(conflict))
	assert.False(t, IsConflict(input))

	assert.False(t, IsInput(nil))
	assert.False(t, IsPersistence(eris.New("untyped")))
}

func TestClassificationThroughWrapping(t *testing.T) {
	err := eris.Wrap(NewConflict(eris.New("duplicate entry")), "append entry")
	assert.True(t, IsConflict(err))
	assert.False(t, IsPersistence(err))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "input: bad candidate", NewInput(eris.New("bad candidate")).Error())
	assert.Equal(t, "conflict: dup", NewConflict(eris.New("dup")).Error())
}
