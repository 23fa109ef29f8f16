package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCut(t *testing.T) {
	cases := goldenTestSuite{
		"first-field": {Args: []string{"cut", "-d", ",", "-f", "1", "users.csv"}},
		"two-fields":  {Args: []string{"cut", "-d", ",", "-f", "1,3", "users.csv"}},
		"open-range":  {Args: []string{"cut", "-d", ",", "-f", "2-", "users.csv"}},
		"characters":  {Args: []string{"cut", "-c", "1-4", "/etc/hostname"}},
		"no-delim":    {Args: []string{"cut", "-d", ",", "-f", "2", "numbers.txt"}},
		"no-list":     {Args: []string{"cut", "users.csv"}},
	}

	cases.Run(t, Cut)
}

func TestParseFieldList(t *testing.T) {
	cases := map[string]struct {
		input   string
		want    []fieldSpan
		wantErr bool
	}{
		"single":     {input: "3", want: []fieldSpan{{3, 3}}},
		"list":       {input: "1,3", want: []fieldSpan{{1, 1}, {3, 3}}},
		"range":      {input: "2-4", want: []fieldSpan{{2, 4}}},
		"open end":   {input: "2-", want: []fieldSpan{{2, 0}}},
		"open start": {input: "-3", want: []fieldSpan{{1, 3}}},
		"zero":       {input: "0", wantErr: true},
		"words":      {input: "x", wantErr: true},
		"empty":      {input: "", wantErr: true},
		"backwards":  {input: "4-2", wantErr: true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, err := parseFieldList(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
