// Package mapping evaluates per-field expressions against raw resources and
// assembles catalog entities from the results.
//
// The expression dialect is pluggable through Evaluator. JQEvaluator (the
// default) runs jq programs with gojq and memoizes compiled programs;
// PathEvaluator resolves gjson paths.
//
// An expression that fails to parse or evaluate is returned verbatim. Specs
// rely on this to hold literal values:
//
//	spec := mapping.Spec{
//	    Identifier: ".Arn",
//	    Blueprint:  "eksCluster",
//	    Properties: map[string]string{"version": ".Version", "provider": "aws"},
//	}
//	entity, err := engine.BuildEntity(ctx, raw, spec)
package mapping
