package testsupport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueSymbolFitsColumn(t *testing.T) {
	a, b := UniqueSymbol("T"), UniqueSymbol("T")
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), 16)
}
