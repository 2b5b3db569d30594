package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandBraced(t *testing.T) {
	t.Setenv("TF_HOST", "db.internal")

	tests := []struct {
		name        string
		in          string
		want        string
		wantMissing []string
	}{
		{"braced var", "host is ${TF_HOST}", "host is db.internal", nil},
		{"positional placeholder kept", "SELECT * FROM hotel WHERE name LIKE $1", "SELECT * FROM hotel WHERE name LIKE $1", nil},
		{"bare name kept", "cost is $amount", "cost is $amount", nil},
		{"mixed", "UPDATE ${TF_HOST} SET a=$1", "UPDATE db.internal SET a=$1", nil},
		{"missing var", "${TF_ABSENT}", "", []string{"TF_ABSENT"}},
		{"unterminated brace kept", "echo ${TF_HOST", "echo ${TF_HOST", nil},
		{"empty braces kept", "a${}b", "a${}b", nil},
		{"lone dollar kept", "price: 5$", "price: 5$", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := make(map[string]struct{})
			got := expandBraced(tt.in, missing)
			require.Equal(t, tt.want, got)

			var names []string
			for name := range missing {
				names = append(names, name)
			}
			require.ElementsMatch(t, tt.wantMissing, names)
		})
	}
}
