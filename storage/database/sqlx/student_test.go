package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_studentByEmailQuery(t *testing.T) {
	assert.Contains(t, studentByEmailQuery, "WHERE lower(email) = lower($1)")
}
