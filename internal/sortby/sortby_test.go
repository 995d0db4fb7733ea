package sortby

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func byNumber(left, right string) bool {
	leftParts := strings.Split(left, "-")
	rightParts := strings.Split(right, "-")

	if len(leftParts) < 2 || len(rightParts) < 2 {
		return false
	}

	leftNum, err := strconv.Atoi(leftParts[1])
	if err != nil {
		return false
	}

	rightNum, err := strconv.Atoi(rightParts[1])
	if err != nil {
		return false
	}

	return leftNum < rightNum
}

func Test_By(t *testing.T) {
	testCases := []struct {
		name   string
		input  []string
		lt     func(l, r string) bool
		expect []string
	}{
		{
			name:   "empty list",
			input:  []string{},
			lt:     byNumber,
			expect: []string{},
		},
		{
			name:   "ascending by number",
			input:  []string{"alpha-2-info", "entry-1-info", "max-16-info", "delta-7"},
			lt:     byNumber,
			expect: []string{"entry-1-info", "alpha-2-info", "delta-7", "max-16-info"},
		},
		{
			name:   "equal items keep input order",
			input:  []string{"b-3", "a-1", "c-3", "d-1"},
			lt:     byNumber,
			expect: []string{"a-1", "d-1", "b-3", "c-3"},
		},
		{
			name:   "descending by number",
			input:  []string{"alpha-2-info", "entry-1-info", "max-16-info", "delta-7"},
			lt:     Descending(byNumber),
			expect: []string{"max-16-info", "delta-7", "alpha-2-info", "entry-1-info"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := By(tc.input, tc.lt)

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_By_doesNotModifyInput(t *testing.T) {
	assert := assert.New(t)

	input := []string{"b-2", "a-1"}
	_ = By(input, byNumber)

	assert.Equal([]string{"b-2", "a-1"}, input)
}
