// Package graphql is the typed-operation adapter of the harness.
//
// A GraphQL document is parsed with gqlparser and every top-level field of the
// selected operation is dispatched separately, keyed by operation type and field
// name. The handler's data is placed under the field's response key (its alias
// when one is given):
//
//	routes := []graphql.Route{
//	    graphql.Query("user",
//	        graphql.Respond(graphql.Data(map[string]any{"id": "1", "name": "Ada"})),
//	    ),
//	    graphql.Mutation("createUser", graphql.Func(func(r *graphql.Request) graphql.Response {
//	        return graphql.Data(map[string]any{"name": r.Args["name"]})
//	    })),
//	}
//
// A document selecting two mocked fields therefore consumes two handler slots
// and produces two collected requests. Fields without a route resolve to null
// with an error, and requests that cannot be parsed are answered with an
// errors-only response without being collected.
package graphql
