package confounder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeEarnings, ParseType("earnings"))
	assert.Equal(t, TypeFDAPDUFA, ParseType("fda_pdufa"))
	assert.Equal(t, TypeOther, ParseType("merger_vote"))
	assert.Equal(t, TypeOther, ParseType(""))
}
