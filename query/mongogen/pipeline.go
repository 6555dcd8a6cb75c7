package mongogen

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/table"
)

// BuildMatchStage wraps a filter in $match.
func BuildMatchStage(filter bson.D) bson.D {
	return bson.D{{Key: "$match", Value: filter}}
}

// BuildParanoidFilterStage excludes soft-deleted documents.
func BuildParanoidFilterStage(field string) bson.D {
	return BuildMatchStage(notDeleted(field))
}

// notDeleted matches documents whose marker is missing or null. Inserts
// store every declared column, so the marker is usually present as null.
func notDeleted(field string) bson.D {
	return bson.D{{Key: field, Value: nil}}
}

// BuildSkipStage skips offset documents.
func BuildSkipStage(offset int) bson.D {
	return bson.D{{Key: "$skip", Value: offset}}
}

// BuildLimitStage limits the result to limit documents.
func BuildLimitStage(limit int) bson.D {
	return bson.D{{Key: "$limit", Value: limit}}
}

// BuildSortStage maps ASC to 1 and DESC to -1.
func BuildSortStage(orders []ast.Order, baseAlias string) bson.D {
	sort := make(bson.D, 0, len(orders))
	for _, o := range orders {
		dir := 1
		if o.Direction == ast.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: stripAlias(o.Column, baseAlias), Value: dir})
	}
	return bson.D{{Key: "$sort", Value: sort}}
}

// BuildProjectStage projects the selected fields. Aliased selections
// project the source field under the alias.
func BuildProjectStage(tbl *table.Table, def *ast.Definition) bson.D {
	base := baseAlias(tbl, def)
	projection := bson.D{}
	seen := map[string]bool{}

	include := func(key string, value interface{}) {
		if seen[key] {
			return
		}
		seen[key] = true
		projection = append(projection, bson.E{Key: key, Value: value})
	}

	selects := def.Select
	if len(selects) == 0 {
		selects = []ast.Selection{{Column: base + ".*"}}
		for _, join := range def.Joins {
			selects = append(selects, ast.Selection{Column: join.Alias + ".*"})
		}
	}

	for _, sel := range selects {
		column := strings.ReplaceAll(sel.Column, `"`, "")
		switch {
		case sel.IsWildcard():
			root, _, _ := strings.Cut(column, ".")
			if root != base {
				include(root, 1)
				continue
			}
			for _, field := range tbl.Columns {
				include(field, 1)
			}
		case sel.As != "":
			include(sel.As, "$"+stripAlias(column, base))
		default:
			include(stripAlias(column, base), 1)
		}
	}

	return bson.D{{Key: "$project", Value: projection}}
}

func stripAlias(field, base string) string {
	field = strings.ReplaceAll(field, `"`, "")
	if root, rest, ok := strings.Cut(field, "."); ok && root == base {
		return rest
	}
	return field
}

func baseAlias(tbl *table.Table, def *ast.Definition) string {
	if def.BaseAlias != "" {
		return def.BaseAlias
	}
	return tbl.Name
}

func validatePagination(def *ast.Definition) error {
	if def.Limit != nil && *def.Limit < 0 || def.Offset != nil && *def.Offset < 0 {
		return ErrNegativePagination
	}
	return nil
}

// CompilePipeline renders a SELECT definition as an aggregation pipeline:
// soft-delete $match, where $match, $lookup joins, $project, $sort,
// having $match, $skip, $limit.
func CompilePipeline(tbl *table.Table, def *ast.Definition) ([]bson.D, error) {
	if err := validatePagination(def); err != nil {
		return nil, err
	}

	base := baseAlias(tbl, def)
	pipeline := []bson.D{}

	if tbl.IsParanoid() && !def.WithDeleted {
		pipeline = append(pipeline, BuildParanoidFilterStage(tbl.Paranoid))
	}

	if !def.Where.IsEmpty() {
		filter, err := CompileFilter(def.Where, base)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, BuildMatchStage(filter))
	}

	for _, join := range def.Joins {
		lookup, err := CompileJoin(join, base)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, lookup)
	}

	pipeline = append(pipeline, BuildProjectStage(tbl, def))

	if len(def.OrderBy) > 0 {
		pipeline = append(pipeline, BuildSortStage(def.OrderBy, base))
	}

	if !def.Having.IsEmpty() {
		filter, err := CompileFilter(def.Having, base)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, BuildMatchStage(filter))
	}

	if def.Offset != nil {
		pipeline = append(pipeline, BuildSkipStage(*def.Offset))
	}
	if def.Limit != nil {
		pipeline = append(pipeline, BuildLimitStage(*def.Limit))
	}

	return pipeline, nil
}

// compileWriteFilter combines the soft-delete filter with WHERE for
// updateMany and deleteMany.
func compileWriteFilter(tbl *table.Table, def *ast.Definition) (bson.D, error) {
	filter := bson.D{}
	if !def.Where.IsEmpty() {
		var err error
		filter, err = CompileFilter(def.Where, baseAlias(tbl, def))
		if err != nil {
			return nil, err
		}
	}

	if !tbl.IsParanoid() || def.WithDeleted {
		return filter, nil
	}

	paranoid := notDeleted(tbl.Paranoid)
	if len(filter) == 0 {
		return paranoid, nil
	}
	return bson.D{{Key: "$and", Value: bson.A{paranoid, filter}}}, nil
}

// Compile renders def as a collection command.
func Compile(tbl *table.Table, def *ast.Definition) (*Command, error) {
	cmd := &Command{Collection: tbl.Name}

	switch def.QueryType {
	case ast.Select:
		pipeline, err := CompilePipeline(tbl, def)
		if err != nil {
			return nil, err
		}
		cmd.Type = Aggregate
		cmd.Pipeline = pipeline

	case ast.Insert:
		if len(def.InsertValues) == 0 {
			return nil, ErrMissingValues
		}
		cmd.Type = InsertMany
		for _, row := range def.InsertValues {
			doc := bson.D{}
			for _, key := range orderedKeys(row, tbl.Columns) {
				doc = append(doc, bson.E{Key: key, Value: row[key]})
			}
			cmd.Documents = append(cmd.Documents, doc)
		}

	case ast.Update:
		if len(def.UpdateValues) == 0 {
			return nil, ErrMissingValues
		}
		filter, err := compileWriteFilter(tbl, def)
		if err != nil {
			return nil, err
		}
		set := bson.D{}
		for _, key := range orderedKeys(def.UpdateValues, tbl.Columns) {
			set = append(set, bson.E{Key: key, Value: def.UpdateValues[key]})
		}
		cmd.Type = UpdateMany
		cmd.Filter = filter
		cmd.Update = bson.D{{Key: "$set", Value: set}}

	case ast.Delete:
		filter, err := compileWriteFilter(tbl, def)
		if err != nil {
			return nil, err
		}
		cmd.Type = DeleteMany
		cmd.Filter = filter

	default:
		return nil, ErrMissingQueryType
	}

	return cmd, nil
}
