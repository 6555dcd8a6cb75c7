package sqlgen

import (
	"fmt"

	"github.com/satishbabariya/strata/query/ast"
)

// compileJoin renders {KIND} JOIN {table} AS {alias} [ON {on}].
func (s *statement) compileJoin(join *ast.Join) (string, error) {
	head := fmt.Sprintf("%s JOIN %s AS %s", join.Kind, s.quote(join.Table), s.quote(join.Alias))

	if !join.Kind.RequiresOn() {
		if join.On != nil {
			return "", fmt.Errorf("%w: %s join does not take an ON condition", ErrInvalidJoin, join.Kind)
		}
		return head, nil
	}

	if join.On == nil {
		return "", fmt.Errorf("%w: %s join requires ON condition", ErrInvalidJoin, join.Kind)
	}

	on, err := s.compileNode(join.On)
	if err != nil {
		return "", err
	}
	if on == "" {
		return "", fmt.Errorf("%w: %s join requires ON condition", ErrInvalidJoin, join.Kind)
	}

	return head + " ON " + on, nil
}
